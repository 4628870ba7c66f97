// Package status derives a composite wellbeing classification from a
// Snapshot and the user's own trend baseline. It performs no I/O.
package status

import (
	"math"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// epsilon bounds the spread so a flat baseline cannot divide by zero.
const epsilon = 1e-6

// State thresholds.
const (
	OptimalThreshold = 0.8
	GoodThreshold    = 0.6
	CareThreshold    = 0.4
)

// minUsableDomains is the least number of domains needed for a state.
const minUsableDomains = 2

// Weights are the relative contribution of each domain to the composite.
type Weights struct {
	HRV      float64
	Sleep    float64
	Activity float64
}

// DefaultWeights returns HRV 0.4, sleep 0.35, activity 0.25.
func DefaultWeights() Weights {
	return Weights{HRV: 0.4, Sleep: 0.35, Activity: 0.25}
}

func (w Weights) of(d models.Domain) float64 {
	switch d {
	case models.DomainHRV:
		return w.HRV
	case models.DomainSleep:
		return w.Sleep
	case models.DomainActivity:
		return w.Activity
	}
	return 0
}

// domainMetrics lists candidate metrics per domain in preference order.
var domainMetrics = []struct {
	domain  models.Domain
	metrics []models.MetricKey
}{
	{models.DomainHRV, []models.MetricKey{models.MetricHRV}},
	{models.DomainSleep, []models.MetricKey{models.MetricSleepEfficiency, models.MetricSleepTotal}},
	{models.DomainActivity, []models.MetricKey{models.MetricSteps, models.MetricActiveEnergy}},
}

// coverageMetrics are the inputs whose availability sets confidence.
var coverageMetrics = []models.MetricKey{
	models.MetricHRV,
	models.MetricHeartRateResting,
	models.MetricSleepEfficiency,
	models.MetricSleepTotal,
	models.MetricSteps,
	models.MetricActiveEnergy,
}

// Analyzer scores snapshots. It is safe for concurrent use.
type Analyzer struct {
	weights Weights
}

// NewAnalyzer creates an Analyzer. Zero or negative weights fall back to
// the defaults.
func NewAnalyzer(w Weights) *Analyzer {
	if w.HRV < 0 || w.Sleep < 0 || w.Activity < 0 || w.HRV+w.Sleep+w.Activity <= 0 {
		w = DefaultWeights()
	}
	return &Analyzer{weights: w}
}

// Analyze computes the StatusResult for snap against trend.
func (a *Analyzer) Analyze(snap models.Snapshot, trend models.TrendAggregate) models.StatusResult {
	result := models.StatusResult{
		SnapshotID: snap.ID,
		Domains:    make([]models.DomainScore, 0, len(domainMetrics)),
	}

	var totalWeight float64
	for _, dm := range domainMetrics {
		ds := scoreDomain(dm.domain, dm.metrics, snap, trend)
		ds.Weight = a.weights.of(dm.domain)
		if ds.Usable {
			result.UsableDomains++
			totalWeight += ds.Weight
		}
		result.Domains = append(result.Domains, ds)
	}

	// Renormalize over usable domains.
	if totalWeight > 0 {
		for i := range result.Domains {
			ds := &result.Domains[i]
			if !ds.Usable {
				ds.Weight = 0
				continue
			}
			ds.Weight /= totalWeight
			result.Score += ds.Score * ds.Weight
		}
	}
	result.Score = clamp(result.Score, 0, 1)

	result.Coverage = coverage(snap)
	if result.UsableDomains < minUsableDomains {
		result.State = models.StateUnknown
		result.Confidence = models.ConfidenceLow
		return result
	}

	result.State = StateForScore(result.Score)
	result.Confidence = ConfidenceForCoverage(result.Coverage)
	return result
}

// scoreDomain uses the first metric that is both present in the snapshot
// and has a baseline in the trend.
func scoreDomain(domain models.Domain, metrics []models.MetricKey, snap models.Snapshot, trend models.TrendAggregate) models.DomainScore {
	ds := models.DomainScore{Domain: domain}

	for _, key := range metrics {
		current := snap.Reading(key)
		if !current.Available {
			continue
		}
		baseline, ok := trend.Metric(key)
		if !ok || baseline.Samples == 0 {
			continue
		}

		spread := baseline.StdDev
		if spread <= 0 {
			spread = baseline.Range()
		}
		spread = math.Max(spread, epsilon)

		ds.Metric = key
		ds.Usable = true
		ds.Current = current.Value
		ds.Baseline = baseline.Mean
		ds.Spread = spread
		ds.Score = SubScore(current.Value, baseline.Mean, spread)
		return ds
	}
	return ds
}

// SubScore maps a deviation from the baseline mean into [0, 1], with 0.5
// meaning "at baseline".
func SubScore(current, mean, spread float64) float64 {
	spread = math.Max(spread, epsilon)
	return clamp(0.5+(current-mean)/(2*spread), 0, 1)
}

// StateForScore maps a composite score to a state.
func StateForScore(score float64) models.State {
	switch {
	case score >= OptimalThreshold:
		return models.StateOptimal
	case score >= GoodThreshold:
		return models.StateGood
	case score >= CareThreshold:
		return models.StateCare
	default:
		return models.StateRest
	}
}

// ConfidenceForCoverage maps input coverage to a confidence level.
func ConfidenceForCoverage(c float64) models.Confidence {
	switch {
	case c >= 0.8:
		return models.ConfidenceHigh
	case c >= 0.5:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func coverage(snap models.Snapshot) float64 {
	readings := snap.Readings()
	var n int
	for _, key := range coverageMetrics {
		if readings[key].Available {
			n++
		}
	}
	return float64(n) / float64(len(coverageMetrics))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
