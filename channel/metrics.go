package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sealOps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subtylsocket",
		Subsystem: "channel",
		Name:      "seal_total",
		Help:      "Messages sealed by the AEAD channel.",
	})

	openOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "subtylsocket",
		Subsystem: "channel",
		Name:      "open_total",
		Help:      "Envelope open attempts, by outcome.",
	}, []string{"outcome"})
)
