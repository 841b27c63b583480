package core

import (
	"errors"
	"net"
	"regexp"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/proto"
)

var reservedName = regexp.MustCompile(`^` + defaultNamePrefix + `[0-9]+$`)

// Options tune a Hub.
type Options struct {
	Capacity       int
	WelcomeMessage string
	MaxNameLength  int
	// WriteTimeout bounds every write to a client; zero disables the deadline.
	WriteTimeout time.Duration
}

// Hub owns the client registry and the single lock that serializes joins,
// departures and the processing of every received line.
type Hub struct {
	mu       sync.Mutex
	registry *Registry
	opts     Options
	sinks    []EventSink
	log      *zerolog.Logger
	closed   bool
	// pending holds clients whose writes failed during the current critical section.
	pending []*Client
}

// NewHub creates a hub with an empty registry.
func NewHub(opts Options, logger *zerolog.Logger, sinks ...EventSink) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = 32
	}
	return &Hub{
		registry: NewRegistry(opts.Capacity),
		opts:     opts,
		sinks:    sinks,
		log:      logger,
	}
}

// Join registers conn, sends the welcome line and announces the client to everyone else.
// When the registry is full the peer is told so and ErrCapacityExceeded is returned;
// closing conn is then up to the caller.
func (h *Hub) Join(conn net.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	addr := remoteHost(conn)
	c, err := h.registry.Allocate(addr, conn)
	if err != nil {
		h.log.Warn().Str("addr", addr).Int("capacity", h.registry.Cap()).Msg("registry full, rejecting connection")
		h.emit(Event{Kind: EventRejected, Addr: addr, Code: ErrCodeCapacityExceeded, At: time.Now().UTC()})
		if conn != nil {
			if h.opts.WriteTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			}
			_ = proto.WriteLine(conn, diagnostic(err))
		}
		return nil, err
	}

	if h.opts.WelcomeMessage != "" {
		h.sendTo(c, h.opts.WelcomeMessage)
	}
	notice := connectedNotice(c)
	n := h.broadcast(notice, c, false)
	h.log.Info().Int64("client_id", c.ID).Str("session_id", c.SessionID).Int("recipients", n).Msg(notice)

	ev := clientEvent(EventJoined, c)
	ev.Recipients = n
	h.emit(ev)

	h.flushPending()
	return c, nil
}

// Leave releases c and tells the others it left. Calling it for a client that
// is already gone does nothing.
func (h *Hub) Leave(c *Client, reason LeaveReason) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.drop(c, reason)
	h.flushPending()
}

// HandleLine interprets one line received from c: a command or chat text.
// It returns false once c is no longer registered and its connection should be closed.
func (h *Hub) HandleLine(c *Client, line string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry.IsOccupied(c) {
		return false
	}

	switch {
	case line == "":
	case IsCommand(line):
		h.processCommand(c, ParseCommand(line))
	default:
		n := h.broadcast(chatLine(c.Name, line), c, false)
		ev := clientEvent(EventMessage, c)
		ev.Recipients = n
		h.emit(ev)
	}

	h.flushPending()
	return h.registry.IsOccupied(c)
}

// Reject sends a diagnostic for err to c without touching any state.
func (h *Hub) Reject(c *Client, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.registry.IsOccupied(c) {
		return
	}
	h.diagnose(c, err)
	h.flushPending()
}

// Snapshot lists the connected clients in slot order.
func (h *Hub) Snapshot() []ClientInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Snapshot()
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Len()
}

// Close disconnects every client and refuses further joins.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, c := range h.registry.Clear() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		ev := clientEvent(EventLeft, c)
		ev.Reason = ReasonShutdown
		h.emit(ev)
	}
	h.pending = nil
}

func (h *Hub) processCommand(c *Client, cmd Command) {
	switch cmd.Kind {
	case CommandDisconnect:
		h.commandEvent(c, cmd)
		h.drop(c, ReasonCommand)
	case CommandUsername:
		h.commandEvent(c, cmd)
		if !cmd.HasArg {
			h.sendTo(c, nameReply(c.Name))
			return
		}
		h.rename(c, cmd.Arg)
	case CommandConnected:
		h.commandEvent(c, cmd)
		h.registry.ForEach(func(other *Client) {
			h.sendTo(c, connectedNotice(other))
		})
	case CommandLogout:
		h.commandEvent(c, cmd)
		h.rename(c, c.DefaultName())
	case CommandHelp:
		h.commandEvent(c, cmd)
		for _, line := range HelpLines() {
			h.sendTo(c, line)
		}
	default:
		h.log.Warn().Int64("client_id", c.ID).Str("command", cmd.Word).Msg("unrecognized command")
		h.diagnose(c, coreErrorf(ErrCodeUnknownCommand, "%s %s", ErrUnknownCommand.Message, cmd.Word))
	}
}

func (h *Hub) rename(c *Client, newName string) {
	if err := h.validateName(c, newName); err != nil {
		h.log.Debug().Int64("client_id", c.ID).Str("name", newName).Err(err).Msg("rename refused")
		h.diagnose(c, err)
		return
	}
	if newName == c.Name {
		h.sendTo(c, nameReply(c.Name))
		return
	}

	notice := renamedNotice(c, newName)
	prev := c.Name
	c.Name = newName

	n := h.broadcast(notice, c, true)
	h.log.Info().Int64("client_id", c.ID).Msg(notice)

	ev := clientEvent(EventRenamed, c)
	ev.PrevName = prev
	ev.Recipients = n
	h.emit(ev)
}

func (h *Hub) validateName(c *Client, name string) error {
	switch {
	case name == "":
		return ErrNameEmpty
	case utf8.RuneCountInString(name) > h.opts.MaxNameLength:
		return ErrNameTooLong
	case reservedName.MatchString(name) && name != c.DefaultName():
		return coreErrorf(ErrCodeNameReserved, "Name %s is reserved", name)
	}
	if other := h.registry.FindByName(name); other != nil && other != c {
		return coreErrorf(ErrCodeNameTaken, "Name %s is already taken", name)
	}
	return nil
}

func (h *Hub) diagnose(c *Client, err error) {
	h.sendTo(c, diagnostic(err))

	ev := clientEvent(EventDiagnostic, c)
	var ce *CoreError
	if errors.As(err, &ce) {
		ev.Code = ce.Code
	}
	h.emit(ev)
}

func (h *Hub) commandEvent(c *Client, cmd Command) {
	ev := clientEvent(EventCommand, c)
	ev.Command = cmd.Word
	h.emit(ev)
}

// drop releases c and announces the departure to the remaining clients.
func (h *Hub) drop(c *Client, reason LeaveReason) {
	if !h.registry.Release(c) {
		return
	}
	notice := disconnectedNotice(c)
	n := h.broadcast(notice, c, false)
	h.log.Info().Int64("client_id", c.ID).Str("reason", string(reason)).Msg(notice)

	ev := clientEvent(EventLeft, c)
	ev.Reason = reason
	ev.Recipients = n
	h.emit(ev)
}

// broadcast writes msg to every occupied client, skipping sender unless
// includeSender is set. It returns the number of successful deliveries.
func (h *Hub) broadcast(msg string, sender *Client, includeSender bool) int {
	delivered := 0
	h.registry.ForEach(func(c *Client) {
		if c == sender && !includeSender {
			return
		}
		if h.sendTo(c, msg) {
			delivered++
		}
	})
	return delivered
}

// sendTo writes one line to c. A failed write closes the connection and
// queues c to be dropped once the current operation is done.
func (h *Hub) sendTo(c *Client, msg string) bool {
	if c.failed || c.conn == nil {
		return false
	}
	if h.opts.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
	}
	err := proto.WriteLine(c.conn, msg)
	if err == nil {
		return true
	}

	h.log.Warn().Err(err).Int64("client_id", c.ID).Str("addr", c.Addr).Msg("write to client failed, dropping it")
	c.failed = true
	_ = c.conn.Close()
	h.pending = append(h.pending, c)

	ev := clientEvent(EventWriteFailed, c)
	h.emit(ev)
	return false
}

// flushPending drops clients that failed a write. Dropping broadcasts a
// notice, which may fail further writes, so it loops until nothing is left.
func (h *Hub) flushPending() {
	for len(h.pending) > 0 {
		c := h.pending[0]
		h.pending = h.pending[1:]
		h.drop(c, ReasonWriteFailed)
	}
}

func (h *Hub) emit(ev Event) {
	for _, sink := range h.sinks {
		sink.HandleEvent(ev)
	}
}

func remoteHost(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return "unknown"
	}
	addr := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
