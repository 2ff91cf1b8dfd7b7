// Package ssmetrics exposes Prometheus metrics for a cluster node:
// active session gauges per kind, messages routed, and session outcomes.
package ssmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "ssnode"
	subsystem = "cluster"
)

const (
	labelKind   = "kind"
	labelResult = "result"
)

// Collector holds all cluster Prometheus metrics.
type Collector struct {
	// ActiveSessions tracks the number of currently live sessions, per kind.
	ActiveSessions *prometheus.GaugeVec

	// SessionsStarted counts sessions started on this node, per kind.
	SessionsStarted *prometheus.CounterVec

	// SessionsFinished counts sessions that reached a terminal state, per
	// kind and result ("ok" or "error").
	SessionsFinished *prometheus.CounterVec

	// MessagesRouted counts inbound messages the router dispatched, per kind.
	MessagesRouted *prometheus.CounterVec

	// MessagesDropped counts inbound messages the router could not dispatch
	// (no matching session the message may create, a finished session, a
	// failure to build a view for a new session, or an unknown kind).
	MessagesDropped *prometheus.CounterVec
}

// NewCollector creates a Collector with all metrics registered against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.ActiveSessions,
		c.SessionsStarted,
		c.SessionsFinished,
		c.MessagesRouted,
		c.MessagesDropped,
	)

	return c
}

func newMetrics() *Collector {
	kindLabels := []string{labelKind}
	resultLabels := []string{labelKind, labelResult}

	return &Collector{
		ActiveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Number of currently live sessions, by kind.",
		}, kindLabels),

		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_started_total",
			Help:      "Total sessions started on this node, by kind.",
		}, kindLabels),

		SessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_finished_total",
			Help:      "Total sessions that reached a terminal state, by kind and result.",
		}, resultLabels),

		MessagesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_routed_total",
			Help:      "Total inbound messages dispatched to a session, by kind.",
		}, kindLabels),

		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_dropped_total",
			Help:      "Total inbound messages that could not be dispatched, by kind.",
		}, kindLabels),
	}
}

// RegisterSession increments the active sessions gauge and the started
// counter for kind. The cluster core does not call it.
func (c *Collector) RegisterSession(kind string) {
	c.ActiveSessions.WithLabelValues(kind).Inc()
	c.SessionsStarted.WithLabelValues(kind).Inc()
}

// UnregisterSession decrements the active sessions gauge and records the
// terminal result for kind. The cluster core does not call it.
func (c *Collector) UnregisterSession(kind string, ok bool) {
	c.ActiveSessions.WithLabelValues(kind).Dec()
	result := "ok"
	if !ok {
		result = "error"
	}
	c.SessionsFinished.WithLabelValues(kind, result).Inc()
}

// IncMessagesRouted increments the routed counter for kind.
func (c *Collector) IncMessagesRouted(kind string) {
	c.MessagesRouted.WithLabelValues(kind).Inc()
}

// IncMessagesDropped increments the dropped counter for kind.
func (c *Collector) IncMessagesDropped(kind string) {
	c.MessagesDropped.WithLabelValues(kind).Inc()
}
