package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tempo",
			Name:      "aggregations_total",
			Help:      "Snapshot aggregations by outcome.",
		},
		[]string{"outcome"},
	)

	categoryFetchSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tempo",
			Name:      "category_fetch_seconds",
			Help:      "Latency of a single category fetch.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"category"},
	)
)
