package handshake

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	handshakesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subtylsocket",
		Subsystem: "handshake",
		Name:      "started_total",
		Help:      "Handshakes started as initiator.",
	})

	handshakesConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtylsocket",
		Subsystem: "handshake",
		Name:      "confirmed_total",
		Help:      "Handshakes that reached the confirmed state, by role.",
	}, []string{"role"})

	handshakesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtylsocket",
		Subsystem: "handshake",
		Name:      "failed_total",
		Help:      "Handshakes that reached the failed state, by role and error kind.",
	}, []string{"role", "kind"})

	handshakeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "subtylsocket",
		Subsystem: "handshake",
		Name:      "duration_seconds",
		Help:      "Wall-clock time from construction to a terminal state, by role.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"role"})
)

// observeOutcome records the terminal status of a handshake and, when
// startedAt is non-zero, the time it took to get there.
func observeOutcome(role string, res *Result, startedAt time.Time) {
	switch res.Status {
	case StatusConfirmed:
		handshakesConfirmed.WithLabelValues(role).Inc()
	case StatusFailed:
		kind := "unknown"
		if herr, ok := res.Err.(*Error); ok {
			kind = string(herr.Kind)
		}
		handshakesFailed.WithLabelValues(role, kind).Inc()
	default:
		return
	}
	if !startedAt.IsZero() {
		handshakeDuration.WithLabelValues(role).Observe(time.Since(startedAt).Seconds())
	}
}
