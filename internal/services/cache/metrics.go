package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tempo",
			Subsystem: "cache",
			Name:      "freshness_checks_total",
			Help:      "Freshness checks by result.",
		},
		[]string{"result"},
	)

	writeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tempo",
			Subsystem: "cache",
			Name:      "write_failures_total",
			Help:      "Failed cache mutations by operation.",
		},
		[]string{"op"},
	)
)
