package models

import "time"

// MetricTrend holds rolling statistics for one metric.
type MetricTrend struct {
	Mean    float64 `json:"mean"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	StdDev  float64 `json:"stdDev"`
	Latest  float64 `json:"latest"`
	Delta   float64 `json:"delta"` // Latest - Mean
	Samples int     `json:"samples"`
}

// Range returns Max - Min.
func (t MetricTrend) Range() float64 {
	return t.Max - t.Min
}

// TrendAggregate summarizes recent cache entries as a personal baseline.
// It is always recomputed from the cache and never stored.
type TrendAggregate struct {
	Entries int                       `json:"entries"`
	From    string                    `json:"from,omitempty"`
	To      string                    `json:"to,omitempty"`
	Metrics map[MetricKey]MetricTrend `json:"metrics"`
	// Series holds per-day values oldest first, used for charts.
	Series map[MetricKey][]float64 `json:"-"`
}

// Metric returns the trend for key if any entry had it.
func (t TrendAggregate) Metric(key MetricKey) (MetricTrend, bool) {
	m, ok := t.Metrics[key]
	return m, ok
}

// CacheEntry is a persisted Snapshot keyed by calendar day.
type CacheEntry struct {
	Day         string
	Snapshot    Snapshot
	WrittenAt   time.Time
	Invalidated bool
}
