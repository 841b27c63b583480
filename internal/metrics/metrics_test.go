package metrics

import (
	"io"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vovakirdan/relaychat/internal/core"
)

func TestHandleEventUpdatesCollectors(t *testing.T) {
	m := New()

	m.HandleEvent(core.Event{Kind: core.EventJoined})
	m.HandleEvent(core.Event{Kind: core.EventJoined})
	m.HandleEvent(core.Event{Kind: core.EventRejected})
	m.HandleEvent(core.Event{Kind: core.EventMessage, Recipients: 1})
	m.HandleEvent(core.Event{Kind: core.EventCommand, Command: "/connected"})
	m.HandleEvent(core.Event{Kind: core.EventDiagnostic, Code: core.ErrCodeUnknownCommand})
	m.HandleEvent(core.Event{Kind: core.EventLeft, Reason: core.ReasonCommand})

	if got := testutil.ToFloat64(m.connected); got != 1 {
		t.Fatalf("clients_connected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connections); got != 2 {
		t.Fatalf("connections_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rejected); got != 1 {
		t.Fatalf("connections_rejected_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.deliveries); got != 1 {
		t.Fatalf("message_deliveries_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.commands.WithLabelValues("/connected")); got != 1 {
		t.Fatalf("commands_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.diagnostics.WithLabelValues(core.ErrCodeUnknownCommand)); got != 1 {
		t.Fatalf("diagnostics_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.departures.WithLabelValues(string(core.ReasonCommand))); got != 1 {
		t.Fatalf("departures_total = %v, want 1", got)
	}
}

func pipeConn(t *testing.T) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	go func() { _, _ = io.Copy(io.Discard, client) }()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server
}

func TestMetricsFollowHubActivity(t *testing.T) {
	m := New()
	hub := core.NewHub(core.Options{Capacity: 1, WelcomeMessage: "hi"}, nil, m)

	c, err := hub.Join(pipeConn(t))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := hub.Join(pipeConn(t)); err == nil {
		t.Fatalf("expected capacity error")
	}
	hub.HandleLine(c, "/username Bob")
	hub.Leave(c, core.ReasonPeerClosed)

	if got := testutil.ToFloat64(m.connected); got != 0 {
		t.Fatalf("clients_connected = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.rejected); got != 1 {
		t.Fatalf("connections_rejected_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.renames); got != 1 {
		t.Fatalf("renames_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.departures.WithLabelValues(string(core.ReasonPeerClosed))); got != 1 {
		t.Fatalf("departures_total = %v, want 1", got)
	}
}
