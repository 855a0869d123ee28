package relay

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	sessions  prometheus.Gauge
	published *prometheus.CounterVec
	delivered prometheus.Counter
	dropped   prometheus.Counter
}

// NewMetrics registers the relay collectors with reg. A nil reg yields
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "relay",
			Name:      "sessions",
			Help:      "Connected WebSocket sessions.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "relay",
			Name:      "published_total",
			Help:      "Frames offered to the relay, by event type.",
		}, []string{"type"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "relay",
			Name:      "delivered_total",
			Help:      "Frames queued onto a session.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "relay",
			Name:      "dropped_total",
			Help:      "Frames dropped because a session buffer was full or closed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessions, m.published, m.delivered, m.dropped)
	}
	return m
}
