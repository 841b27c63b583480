package core

import "time"

// EventKind is a notification the hub emits to its sinks.
type EventKind int

const (
	// EventJoined fires after a connection was registered and announced.
	EventJoined EventKind = iota
	// EventLeft fires after a client was released from the registry.
	EventLeft
	// EventRenamed fires after a client changed its display name.
	EventRenamed
	// EventMessage fires after plain text was relayed.
	EventMessage
	// EventCommand fires for every recognized command.
	EventCommand
	// EventRejected fires when a connection is turned away because the registry is full.
	EventRejected
	// EventWriteFailed fires when a write to a client fails.
	EventWriteFailed
	// EventDiagnostic fires when a client receives an error diagnostic.
	EventDiagnostic
)

var eventKindNames = [...]string{
	EventJoined:      "joined",
	EventLeft:        "left",
	EventRenamed:     "renamed",
	EventMessage:     "message",
	EventCommand:     "command",
	EventRejected:    "rejected",
	EventWriteFailed: "write_failed",
	EventDiagnostic:  "diagnostic",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// LeaveReason tells why a client left the registry.
type LeaveReason string

const (
	ReasonCommand     LeaveReason = "disconnect"
	ReasonPeerClosed  LeaveReason = "peer_closed"
	ReasonReadError   LeaveReason = "read_error"
	ReasonWriteFailed LeaveReason = "write_failed"
	ReasonShutdown    LeaveReason = "shutdown"
)

// Event describes what happened to a client.
type Event struct {
	Kind       EventKind
	ClientID   int64
	SessionID  string
	Name       string
	PrevName   string
	Addr       string
	Command    string
	Code       string
	Reason     LeaveReason
	Recipients int
	At         time.Time
}

// EventSink observes hub events. HandleEvent runs under the hub lock and must not block.
type EventSink interface {
	HandleEvent(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// HandleEvent calls f(ev).
func (f EventSinkFunc) HandleEvent(ev Event) {
	f(ev)
}

func clientEvent(kind EventKind, c *Client) Event {
	return Event{
		Kind:      kind,
		ClientID:  c.ID,
		SessionID: c.SessionID,
		Name:      c.Name,
		Addr:      c.Addr,
		At:        time.Now().UTC(),
	}
}
