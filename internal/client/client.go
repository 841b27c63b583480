// Package client is an interactive line client for the relay: it forwards
// terminal input to the server and prints every line the server sends.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
)

// maxServerLine bounds a single line received from the server.
const maxServerLine = 64 * 1024

// Client connects one terminal to the relay.
type Client struct {
	conn net.Conn
	in   io.Reader
	log  *zerolog.Logger

	outMu sync.Mutex
	out   io.Writer

	mu       sync.Mutex
	username string
}

// Dial connects to addr and returns a client reading input from in and printing to out.
func Dial(ctx context.Context, addr string, in io.Reader, out io.Writer, logger *zerolog.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", addr, err)
	}
	return New(conn, in, out, logger), nil
}

// New wraps an established connection.
func New(conn net.Conn, in io.Reader, out io.Writer, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{conn: conn, in: in, out: out, log: logger}
}

// Username is the name last requested with /username, empty after /logout.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Run relays input and server lines until the user disconnects, input ends,
// the server closes the connection or ctx is cancelled. The connection is
// closed on return.
func (c *Client) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()
	defer c.conn.Close()

	received := make(chan error, 1)
	go func() { received <- c.receive() }()

	typed := make(chan error, 1)
	go func() { typed <- c.forward() }()

	select {
	case err := <-received:
		return err
	case err := <-typed:
		return err
	case <-ctx.Done():
		return nil
	}
}

// receive prints server lines until the connection ends.
func (c *Client) receive() error {
	r := proto.NewLineReader(c.conn, maxServerLine)
	for {
		line, err := r.ReadLine()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				c.println("Connection closed by server")
				return nil
			case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
				return nil
			default:
				return fmt.Errorf("read: %w", err)
			}
		}
		c.println(line)
	}
}

// forward reads input lines and sends them, interpreting commands first.
func (c *Client) forward() error {
	r := proto.NewLineReader(c.in, 0)
	for {
		line, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if line == "" {
			continue
		}

		if !core.IsCommand(line) {
			if err := c.send(line); err != nil {
				return err
			}
			continue
		}

		done, err := c.process(line)
		if err != nil || done {
			return err
		}
	}
}

// process handles one command line. It reports true when the client should stop.
func (c *Client) process(line string) (bool, error) {
	cmd := core.ParseCommand(line)
	switch cmd.Kind {
	case core.CommandDisconnect:
		if err := c.send(line); err != nil {
			return true, err
		}
		c.println("Disconnecting...")
		return true, nil
	case core.CommandConnected:
		c.println("Asking for connected users...")
		return false, c.send(line)
	case core.CommandLogout:
		if err := c.send(line); err != nil {
			return true, err
		}
		c.println("Logging out in server")
		c.setUsername("")
		return false, nil
	case core.CommandUsername:
		if cmd.Arg != "" {
			c.setUsername(cmd.Arg)
		}
		return false, c.send(line)
	case core.CommandHelp:
		for _, l := range core.HelpLines() {
			c.println(l)
		}
		return false, nil
	default:
		c.println("Unrecognized command.")
		return false, nil
	}
}

func (c *Client) send(line string) error {
	if err := proto.WriteLine(c.conn, line); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	c.log.Debug().Int("bytes", len(line)).Msg("sent line")
	return nil
}

func (c *Client) setUsername(name string) {
	c.mu.Lock()
	c.username = name
	c.mu.Unlock()
}

func (c *Client) println(s string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	_, _ = fmt.Fprintln(c.out, s)
}
