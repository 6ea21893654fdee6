// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

var (
	// Connections is the number of open WebSocket connections.
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections",
		Help:      "Open WebSocket connections.",
	})

	// Sessions is the number of authenticated sessions.
	Sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_authenticated",
		Help:      "Authenticated sessions.",
	})

	// Events counts inbound events by type.
	Events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Inbound events handled, by type.",
	}, []string{"type"})

	// Errors counts error events sent to clients, by code.
	Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Error events returned to clients, by code.",
	}, []string{"code"})

	// Dropped counts outbound events discarded because a client was too slow.
	Dropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_events_total",
		Help:      "Outbound events dropped on full client buffers.",
	})

	// Logins counts issued tokens.
	Logins = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Tokens issued by the login endpoint.",
	})
)

func init() {
	prometheus.MustRegister(Connections)
	prometheus.MustRegister(Sessions)
	prometheus.MustRegister(Events)
	prometheus.MustRegister(Errors)
	prometheus.MustRegister(Dropped)
	prometheus.MustRegister(Logins)
}
