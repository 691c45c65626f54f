package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the collaboration core. A single instance
// is created at startup and injected alongside the other services.
type Metrics struct {
	registry *prometheus.Registry

	OpenConnections  prometheus.Gauge
	ActiveSessions   prometheus.Gauge
	EventsPublished  prometheus.Counter
	EventsDropped    prometheus.Counter
	MessagesRejected prometheus.Counter
	SessionsReaped   prometheus.Counter
	UsersReaped      prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tulisbareng",
			Subsystem: "collab",
			Name:      "open_connections",
			Help:      "Number of live websocket connections.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tulisbareng",
			Subsystem: "collab",
			Name:      "active_sessions",
			Help:      "Number of documents with at least one connected user.",
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tulisbareng",
			Subsystem: "collab",
			Name:      "events_published_total",
			Help:      "Events published to document broadcast channels.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tulisbareng",
			Subsystem: "collab",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber buffer was full.",
		}),
		MessagesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tulisbareng",
			Subsystem: "collab",
			Name:      "messages_rejected_total",
			Help:      "Inbound messages dropped as malformed.",
		}),
		SessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tulisbareng",
			Subsystem: "collab",
			Name:      "sessions_reaped_total",
			Help:      "Idle sessions removed by the reaper.",
		}),
		UsersReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tulisbareng",
			Subsystem: "collab",
			Name:      "users_reaped_total",
			Help:      "Idle users removed from surviving sessions by the reaper.",
		}),
	}

	registry.MustRegister(
		m.OpenConnections,
		m.ActiveSessions,
		m.EventsPublished,
		m.EventsDropped,
		m.MessagesRejected,
		m.SessionsReaped,
		m.UsersReaped,
	)

	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
