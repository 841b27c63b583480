package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestHubJoinWelcomesAndAnnounces(t *testing.T) {
	h := newTestHub(t, 4)
	_, connA := join(t, h, 1)

	connB := newFakeConn("10.0.0.2")
	b, err := h.Join(connB)
	if err != nil {
		t.Fatalf("join B: %v", err)
	}
	if b.Name != "Unnamed-1" || b.Addr != "10.0.0.2" {
		t.Fatalf("unexpected client %+v", b)
	}

	expectLines(t, connB, "Welcome!")
	expectLines(t, connA, "SERVER: Client (Unnamed-1) (10.0.0.2) connected")
}

func TestHubBroadcastExcludesSender(t *testing.T) {
	h := newTestHub(t, 4)
	a, connA := join(t, h, 1)
	_, connB := join(t, h, 2)
	_, connC := join(t, h, 3)
	connA.drain()
	connB.drain()

	if !h.HandleLine(a, "hello") {
		t.Fatalf("sender must stay connected")
	}

	expectLines(t, connA)
	expectLines(t, connB, "Unnamed-0-: hello")
	expectLines(t, connC, "Unnamed-0-: hello")
}

func TestHubBroadcastIncludeSender(t *testing.T) {
	h := newTestHub(t, 4)
	a, connA := join(t, h, 1)
	_, connB := join(t, h, 2)
	connA.drain()

	h.mu.Lock()
	n := h.broadcast("ping", a, true)
	h.mu.Unlock()

	if n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	expectLines(t, connA, "ping")
	expectLines(t, connB, "ping")
}

func TestHubRenameRoundTrip(t *testing.T) {
	h := newTestHub(t, 4)
	_, connA := join(t, h, 1)
	b, connB := join(t, h, 2)
	connA.drain()

	h.HandleLine(b, "/username Bob")
	notice := "SERVER: Client (Unnamed-1) (10.0.0.2) changed name to (Bob)"
	expectLines(t, connA, notice)
	expectLines(t, connB, notice)

	h.HandleLine(b, "/username")
	expectLines(t, connB, "SERVER: Your name is Bob")
	expectLines(t, connA)

	h.HandleLine(b, "hi")
	expectLines(t, connA, "Bob-: hi")
}

func TestHubRenameValidation(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"whitespace only", "/username    ", "SERVER: Name must not be empty"},
		{"ideographic space only", "/username\u3000", "SERVER: Name must not be empty"},
		{"too long", "/username " + strings.Repeat("x", 17), "SERVER: Name is too long"},
		{"taken", "/username Alice", "SERVER: Name Alice is already taken"},
		{"reserved", "/username Unnamed-7", "SERVER: Name Unnamed-7 is reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub(t, 4)
			a, connA := join(t, h, 1)
			b, connB := join(t, h, 2)
			h.HandleLine(a, "/username Alice")
			connA.drain()
			connB.drain()

			if !h.HandleLine(b, tt.line) {
				t.Fatalf("invalid rename must not disconnect")
			}
			expectLines(t, connB, tt.want)
			expectLines(t, connA)
			if b.Name != "Unnamed-1" {
				t.Fatalf("name changed to %q", b.Name)
			}
		})
	}
}

func TestHubRenameAfterMultiByteSeparator(t *testing.T) {
	h := newTestHub(t, 4)
	_, connA := join(t, h, 1)
	b, connB := join(t, h, 2)

	h.HandleLine(b, "/username\u00a0Bob")
	notice := "SERVER: Client (Unnamed-1) (10.0.0.2) changed name to (Bob)"
	expectLines(t, connA, notice)
	expectLines(t, connB, notice)
	if b.Name != "Bob" || !utf8.ValidString(b.Name) {
		t.Fatalf("name = %q, want Bob", b.Name)
	}
}

func TestHubRenameToSameNameRepliesOnly(t *testing.T) {
	h := newTestHub(t, 4)
	_, connA := join(t, h, 1)
	b, connB := join(t, h, 2)
	h.HandleLine(b, "/username Bob")
	connA.drain()
	connB.drain()

	h.HandleLine(b, "/username Bob")
	expectLines(t, connB, "SERVER: Your name is Bob")
	expectLines(t, connA)
}

func TestHubLogoutRestoresDefaultName(t *testing.T) {
	h := newTestHub(t, 4)
	_, connA := join(t, h, 1)
	b, connB := join(t, h, 2)
	h.HandleLine(b, "/username Bob")
	connA.drain()
	connB.drain()

	if !h.HandleLine(b, "/logout") {
		t.Fatalf("logout must keep the connection")
	}
	notice := "SERVER: Client (Bob) (10.0.0.2) changed name to (Unnamed-1)"
	expectLines(t, connA, notice)
	expectLines(t, connB, notice)
	if b.Name != "Unnamed-1" {
		t.Fatalf("unexpected name %q", b.Name)
	}
}

func TestHubConnectedListsOccupiedClients(t *testing.T) {
	h := newTestHub(t, 4)
	a, connA := join(t, h, 1)

	h.HandleLine(a, "/connected")
	expectLines(t, connA, "SERVER: Client (Unnamed-0) (10.0.0.1) connected")

	_, _ = join(t, h, 2)
	connA.drain()
	h.HandleLine(a, "/connected")
	expectLines(t, connA,
		"SERVER: Client (Unnamed-0) (10.0.0.1) connected",
		"SERVER: Client (Unnamed-1) (10.0.0.2) connected",
	)
}

func TestHubDisconnectReleasesSlot(t *testing.T) {
	h := newTestHub(t, 2)
	a, connA := join(t, h, 1)
	b, connB := join(t, h, 2)
	connA.drain()

	if h.HandleLine(b, "/disconnect") {
		t.Fatalf("disconnect must end the session")
	}
	expectLines(t, connA, "SERVER: Client (Unnamed-1) (10.0.0.2) disconnected")
	expectLines(t, connB)
	if h.Len() != 1 {
		t.Fatalf("expected one client left, got %d", h.Len())
	}

	// Lines arriving after release are ignored.
	if h.HandleLine(b, "late") {
		t.Fatalf("released client must not be served")
	}
	expectLines(t, connA)

	c, connC := join(t, h, 3)
	if c.ID != 2 {
		t.Fatalf("expected fresh id 2, got %d", c.ID)
	}
	connA.drain()

	h.HandleLine(a, "/connected")
	for _, line := range connA.drain() {
		if strings.Contains(line, "Unnamed-1") {
			t.Fatalf("released client listed: %q", line)
		}
	}
	expectLines(t, connC)
}

func TestHubLeaveIsIdempotent(t *testing.T) {
	h := newTestHub(t, 2)
	_, connA := join(t, h, 1)
	b, _ := join(t, h, 2)
	connA.drain()

	h.Leave(b, ReasonPeerClosed)
	h.Leave(b, ReasonReadError)

	expectLines(t, connA, "SERVER: Client (Unnamed-1) (10.0.0.2) disconnected")
}

func TestHubUnknownCommandOnlyDiagnoses(t *testing.T) {
	h := newTestHub(t, 4)
	a, connA := join(t, h, 1)
	_, connB := join(t, h, 2)
	connA.drain()

	for _, line := range []string{"/foo", "/", "/usernameBob"} {
		if !h.HandleLine(a, line) {
			t.Fatalf("%q must not disconnect", line)
		}
		word := strings.Fields(line)[0]
		expectLines(t, connA, "SERVER: Unrecognized command "+word)
	}
	expectLines(t, connB)
	if h.Len() != 2 || a.Name != "Unnamed-0" {
		t.Fatalf("unknown command changed state")
	}
}

func TestHubHelpRepliesPrivately(t *testing.T) {
	h := newTestHub(t, 4)
	a, connA := join(t, h, 1)
	_, connB := join(t, h, 2)
	connA.drain()

	h.HandleLine(a, "/help")
	if got := connA.drain(); len(got) != len(HelpLines()) {
		t.Fatalf("expected %d help lines, got %q", len(HelpLines()), got)
	}
	expectLines(t, connB)
}

func TestHubEmptyLineIgnored(t *testing.T) {
	h := newTestHub(t, 4)
	a, _ := join(t, h, 1)
	_, connB := join(t, h, 2)

	h.HandleLine(a, "")
	expectLines(t, connB)
}

func TestHubCapacityRejectsGracefully(t *testing.T) {
	var rejected int
	sink := EventSinkFunc(func(ev Event) {
		if ev.Kind == EventRejected {
			rejected++
		}
	})
	h := newTestHub(t, 2, sink)
	_, connA := join(t, h, 1)
	_, _ = join(t, h, 2)
	connA.drain()

	extra := newFakeConn("10.0.0.3")
	if _, err := h.Join(extra); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	expectLines(t, extra, "SERVER: Server is full")
	expectLines(t, connA)
	if h.Len() != 2 || rejected != 1 {
		t.Fatalf("len=%d rejected=%d", h.Len(), rejected)
	}
}

func TestHubWriteFailureDropsOnlyFailingClient(t *testing.T) {
	h := newTestHub(t, 4)
	a, connA := join(t, h, 1)
	_, connB := join(t, h, 2)
	_, connC := join(t, h, 3)
	connA.drain()
	connB.drain()
	connC.breakWrites()

	if !h.HandleLine(a, "hi") {
		t.Fatalf("sender must stay connected")
	}

	expectLines(t, connB,
		"Unnamed-0-: hi",
		"SERVER: Client (Unnamed-2) (10.0.0.3) disconnected",
	)
	expectLines(t, connA, "SERVER: Client (Unnamed-2) (10.0.0.3) disconnected")
	if !connC.isClosed() {
		t.Fatalf("failing connection must be closed")
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 clients left, got %d", h.Len())
	}
}

func TestHubEventsReachSinks(t *testing.T) {
	var kinds []string
	sink := EventSinkFunc(func(ev Event) {
		kinds = append(kinds, ev.Kind.String())
	})
	h := newTestHub(t, 4, sink)
	a, _ := join(t, h, 1)
	b, _ := join(t, h, 2)

	h.HandleLine(a, "hello")
	h.HandleLine(b, "/username Bob")
	h.HandleLine(b, "/nope")
	h.HandleLine(b, "/disconnect")

	want := []string{
		"joined", "joined",
		"message",
		"command", "renamed",
		"diagnostic",
		"command", "left",
	}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("got events %v, want %v", kinds, want)
	}
}

func TestHubCloseDisconnectsEveryone(t *testing.T) {
	h := newTestHub(t, 4)
	_, connA := join(t, h, 1)
	_, connB := join(t, h, 2)

	h.Close()

	if !connA.isClosed() || !connB.isClosed() {
		t.Fatalf("connections left open after close")
	}
	if h.Len() != 0 {
		t.Fatalf("registry not cleared")
	}
	if _, err := h.Join(newFakeConn("10.0.0.9")); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
}

func TestHubSerializesConcurrentSenders(t *testing.T) {
	h := newTestHub(t, 8)
	senders := make([]*Client, 4)
	for i := range senders {
		senders[i], _ = join(t, h, i+1)
	}
	_, observer := join(t, h, 9)
	observer.drain()

	const perSender = 50
	var wg sync.WaitGroup
	for _, c := range senders {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				h.HandleLine(c, fmt.Sprintf("msg-%d", i))
			}
		}(c)
	}
	wg.Wait()

	lines := observer.drain()
	if len(lines) != len(senders)*perSender {
		t.Fatalf("expected %d lines, got %d", len(senders)*perSender, len(lines))
	}
	next := map[string]int{}
	for _, line := range lines {
		name, text, ok := strings.Cut(line, "-: ")
		if !ok {
			t.Fatalf("corrupted line %q", line)
		}
		if want := fmt.Sprintf("msg-%d", next[name]); text != want {
			t.Fatalf("out of order for %s: got %q want %q", name, text, want)
		}
		next[name]++
	}
}

func BenchmarkHubBroadcast(b *testing.B) {
	for _, recipients := range []int{10, 100, 500} {
		b.Run(fmt.Sprint(recipients), func(b *testing.B) {
			h := NewHub(Options{Capacity: recipients + 1}, nil)
			sender, err := h.Join(newFakeConn("10.0.0.1"))
			if err != nil {
				b.Fatalf("join: %v", err)
			}
			conns := make([]*fakeConn, 0, recipients)
			for i := 0; i < recipients; i++ {
				conn := newFakeConn("10.0.1.1")
				if _, err := h.Join(conn); err != nil {
					b.Fatalf("join: %v", err)
				}
				conns = append(conns, conn)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				h.HandleLine(sender, "payload")
				if i%64 == 0 {
					b.StopTimer()
					for _, c := range conns {
						c.drain()
					}
					b.StartTimer()
				}
			}
		})
	}
}
