package relay

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "debugit"

// Message outcome labels.
const (
	outcomeSent    = "sent"
	outcomeSkipped = "skipped"
	outcomeDropped = "dropped"
	outcomeFailed  = "failed"
)

// Metrics holds the relay's prometheus collectors on a dedicated registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	viewers     prometheus.Gauge
	connections *prometheus.CounterVec
	messages    *prometheus.CounterVec
	clientState prometheus.Gauge
	attempts    prometheus.Counter
}

// NewMetrics builds the relay collectors backed by a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "viewers",
			Help:      "Viewers currently in the broadcast set.",
		}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "connections_total",
			Help:      "Viewer connection attempts by result.",
		}, []string{"result"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Relayed messages by role and outcome.",
		}, []string{"role", "outcome"}),
		clientState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "client_state",
			Help:      "Relay client connection state (0 disconnected, 1 connecting, 2 connected, 3 closed).",
		}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "relay",
			Name:      "client_connect_attempts_total",
			Help:      "Relay client connection attempts.",
		}),
	}
	m.registry.MustRegister(m.viewers, m.connections, m.messages, m.clientState, m.attempts)
	return m
}

// Handler exposes the registry via an http.Handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) setViewers(n int) {
	if m == nil {
		return
	}
	m.viewers.Set(float64(n))
}

func (m *Metrics) connection(result string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(result).Inc()
}

func (m *Metrics) message(role Mode, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(string(role), outcome).Inc()
}

func (m *Metrics) setClientState(state float64) {
	if m == nil {
		return
	}
	m.clientState.Set(state)
}

func (m *Metrics) attempt() {
	if m == nil {
		return
	}
	m.attempts.Inc()
}
