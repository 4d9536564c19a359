// Package metrics holds the domain counters exported on /metrics.
//
// A nil *Metrics is valid and records nothing, so services can be built
// without a registry in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "muzz"

type Metrics struct {
	swipes          *prometheus.CounterVec
	matches         prometheus.Counter
	chatMessages    *prometheus.CounterVec
	chatConnections prometheus.Gauge
	chatDropped     prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them via promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swipes_total",
			Help:      "Swipes recorded, by action.",
		}, []string{"action"}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Match pairs created.",
		}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages handled, by result.",
		}, []string{"result"}),
		chatConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_connections",
			Help:      "Open chat streams.",
		}),
		chatDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_events_dropped_total",
			Help:      "Events dropped because a connection outbox was full.",
		}),
	}
	reg.MustRegister(m.swipes, m.matches, m.chatMessages, m.chatConnections, m.chatDropped)
	return m
}

func (m *Metrics) SwipeRecorded(action string) {
	if m == nil {
		return
	}
	m.swipes.WithLabelValues(action).Inc()
}

func (m *Metrics) MatchCreated() {
	if m == nil {
		return
	}
	m.matches.Inc()
}

// ChatMessage counts a send attempt; result is "delivered", "rejected" or "failed".
func (m *Metrics) ChatMessage(result string) {
	if m == nil {
		return
	}
	m.chatMessages.WithLabelValues(result).Inc()
}

func (m *Metrics) ChatConnected() {
	if m == nil {
		return
	}
	m.chatConnections.Inc()
}

func (m *Metrics) ChatDisconnected() {
	if m == nil {
		return
	}
	m.chatConnections.Dec()
}

func (m *Metrics) ChatEventDropped() {
	if m == nil {
		return
	}
	m.chatDropped.Inc()
}
