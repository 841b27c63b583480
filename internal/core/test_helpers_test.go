package core

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeConn records everything the hub writes. Only the net.Conn methods the
// hub calls are implemented; the embedded interface stays nil.
type fakeConn struct {
	net.Conn

	mu         sync.Mutex
	buf        bytes.Buffer
	addr       net.Addr
	failWrites bool
	closed     bool
}

func newFakeConn(host string) *fakeConn {
	return &fakeConn{addr: &net.TCPAddr{IP: net.ParseIP(host), Port: 40000}}
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites || f.closed {
		return 0, errors.New("broken pipe")
	}
	return f.buf.Write(p)
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) RemoteAddr() net.Addr            { return f.addr }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) breakWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = true
}

// drain returns the lines written since the last drain.
func (f *fakeConn) drain() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := f.buf.String()
	f.buf.Reset()
	if raw == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(raw, "\n"), "\n")
}

func newTestHub(t *testing.T, capacity int, sinks ...EventSink) *Hub {
	t.Helper()
	return NewHub(Options{
		Capacity:       capacity,
		WelcomeMessage: "Welcome!",
		MaxNameLength:  16,
	}, nil, sinks...)
}

// join registers a fake connection from 10.0.0.<n> and discards its welcome line.
func join(t *testing.T, h *Hub, n int) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn(fmt.Sprintf("10.0.0.%d", n))
	c, err := h.Join(conn)
	if err != nil {
		t.Fatalf("join %d: %v", n, err)
	}
	conn.drain()
	return c, conn
}

func expectLines(t *testing.T, conn *fakeConn, want ...string) {
	t.Helper()
	got := conn.drain()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected lines\n got: %q\nwant: %q", got, want)
	}
}
