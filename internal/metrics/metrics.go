// Package metrics exposes hub activity as prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/relaychat/internal/core"
)

const namespace = "relaychat"

// Metrics counts hub events. It implements core.EventSink.
type Metrics struct {
	registry *prometheus.Registry

	connected     prometheus.Gauge
	connections   prometheus.Counter
	rejected      prometheus.Counter
	departures    *prometheus.CounterVec
	messages      prometheus.Counter
	deliveries    prometheus.Counter
	commands      *prometheus.CounterVec
	renames       prometheus.Counter
	writeFailures prometheus.Counter
	diagnostics   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_connected",
			Help:      "Clients currently holding a registry slot.",
		}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections registered since start.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections turned away because the registry was full.",
		}),
		departures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "departures_total",
			Help:      "Clients released from the registry, by reason.",
		}, []string{"reason"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relayed_total",
			Help:      "Chat lines relayed.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_deliveries_total",
			Help:      "Chat lines written to recipients.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Recognized commands, by command word.",
		}, []string{"command"}),
		renames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renames_total",
			Help:      "Successful display name changes.",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_failures_total",
			Help:      "Writes to clients that failed and dropped the client.",
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Error diagnostics sent to clients, by code.",
		}, []string{"code"}),
	}

	m.registry.MustRegister(
		m.connected,
		m.connections,
		m.rejected,
		m.departures,
		m.messages,
		m.deliveries,
		m.commands,
		m.renames,
		m.writeFailures,
		m.diagnostics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// HandleEvent updates the collectors for ev.
func (m *Metrics) HandleEvent(ev core.Event) {
	switch ev.Kind {
	case core.EventJoined:
		m.connected.Inc()
		m.connections.Inc()
	case core.EventLeft:
		m.connected.Dec()
		m.departures.WithLabelValues(string(ev.Reason)).Inc()
	case core.EventRejected:
		m.rejected.Inc()
	case core.EventMessage:
		m.messages.Inc()
		m.deliveries.Add(float64(ev.Recipients))
	case core.EventCommand:
		m.commands.WithLabelValues(ev.Command).Inc()
	case core.EventRenamed:
		m.renames.Inc()
	case core.EventWriteFailed:
		m.writeFailures.Inc()
	case core.EventDiagnostic:
		m.diagnostics.WithLabelValues(ev.Code).Inc()
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
