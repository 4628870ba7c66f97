package delivery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tempo",
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Advisory delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)

	retryDelaySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tempo",
			Subsystem: "delivery",
			Name:      "retry_delay_seconds",
			Help:      "Backoff delay before each retry.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)
)
