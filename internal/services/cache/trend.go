package cache

import (
	"math"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// ComputeTrend derives per-metric statistics from entries ordered oldest
// first. Unavailable readings are skipped, so a metric's Samples can be
// smaller than the entry count.
func ComputeTrend(entries []models.CacheEntry) models.TrendAggregate {
	agg := models.TrendAggregate{
		Entries: len(entries),
		Metrics: make(map[models.MetricKey]models.MetricTrend),
		Series:  make(map[models.MetricKey][]float64),
	}
	if len(entries) == 0 {
		return agg
	}
	agg.From = entries[0].Day
	agg.To = entries[len(entries)-1].Day

	for _, e := range entries {
		for key, v := range e.Snapshot.Values() {
			agg.Series[key] = append(agg.Series[key], v)
		}
	}

	for key, values := range agg.Series {
		agg.Metrics[key] = summarize(values)
	}
	return agg
}

func summarize(values []float64) models.MetricTrend {
	t := models.MetricTrend{
		Min:     math.Inf(1),
		Max:     math.Inf(-1),
		Samples: len(values),
	}

	var sum float64
	for _, v := range values {
		sum += v
		t.Min = math.Min(t.Min, v)
		t.Max = math.Max(t.Max, v)
	}
	t.Mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - t.Mean
		sq += d * d
	}
	t.StdDev = math.Sqrt(sq / float64(len(values)))

	t.Latest = values[len(values)-1]
	t.Delta = t.Latest - t.Mean
	return t
}
