package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services/cache"
)

func TestStateForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  models.State
	}{
		{1.0, models.StateOptimal},
		{0.8, models.StateOptimal},
		{0.7999, models.StateGood},
		{0.6, models.StateGood},
		{0.5999, models.StateCare},
		{0.4, models.StateCare},
		{0.3999, models.StateRest},
		{0, models.StateRest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StateForScore(tt.score), "score %v", tt.score)
	}
}

func TestSubScore(t *testing.T) {
	assert.InDelta(t, 0.5, SubScore(50, 50, 10), 1e-9)
	assert.InDelta(t, 1.0, SubScore(60, 50, 10), 1e-9)
	assert.InDelta(t, 0.0, SubScore(40, 50, 10), 1e-9)
	assert.InDelta(t, 0.75, SubScore(55, 50, 10), 1e-9)
	assert.Equal(t, 1.0, SubScore(1000, 50, 10), "clamped high")
	assert.Equal(t, 0.0, SubScore(-1000, 50, 10), "clamped low")
	assert.Equal(t, 0.5, SubScore(5, 5, 0), "flat baseline at mean")
}

func history(days ...models.Snapshot) models.TrendAggregate {
	entries := make([]models.CacheEntry, len(days))
	for i, s := range days {
		entries[i] = models.CacheEntry{Day: s.ID, Snapshot: s}
	}
	return cache.ComputeTrend(entries)
}

func day(id string, hrv, eff, steps float64) models.Snapshot {
	return models.Snapshot{
		ID:       id,
		Vitals:   models.VitalsRecord{HRV: models.Measured(hrv), HeartRate: models.HeartRate{Resting: models.Measured(60)}},
		Sleep:    models.SleepRecord{Efficiency: models.Estimate(eff), TotalMinutes: models.Measured(420)},
		Activity: models.ActivityRecord{Steps: models.Measured(steps), ActiveEnergyKcal: models.Measured(400)},
	}
}

func TestAnalyze_AtBaseline(t *testing.T) {
	trend := history(day("d1", 40, 0.8, 6000), day("d2", 60, 0.9, 10000))
	snap := day("now", 50, 0.85, 8000)

	res := NewAnalyzer(DefaultWeights()).Analyze(snap, trend)

	assert.Equal(t, "now", res.SnapshotID)
	assert.InDelta(t, 0.5, res.Score, 1e-9)
	assert.Equal(t, models.StateCare, res.State)
	assert.Equal(t, models.ConfidenceHigh, res.Confidence)
	assert.Equal(t, 3, res.UsableDomains)
	assert.InDelta(t, 1.0, res.Coverage, 1e-9)

	hrv, ok := res.Domain(models.DomainHRV)
	require.True(t, ok)
	assert.Equal(t, models.MetricHRV, hrv.Metric)
	assert.InDelta(t, 0.4, hrv.Weight, 1e-9)
	assert.InDelta(t, 10, hrv.Spread, 1e-9)
}

func TestAnalyze_AboveBaseline(t *testing.T) {
	trend := history(day("d1", 40, 0.8, 6000), day("d2", 60, 0.9, 10000))
	snap := day("now", 70, 0.95, 12000)

	res := NewAnalyzer(DefaultWeights()).Analyze(snap, trend)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.Equal(t, models.StateOptimal, res.State)
}

func TestAnalyze_BelowBaseline(t *testing.T) {
	trend := history(day("d1", 40, 0.8, 6000), day("d2", 60, 0.9, 10000))
	snap := day("now", 30, 0.7, 2000)

	res := NewAnalyzer(DefaultWeights()).Analyze(snap, trend)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, models.StateRest, res.State)
}

func TestAnalyze_RenormalizesWeights(t *testing.T) {
	trend := history(day("d1", 40, 0.8, 6000), day("d2", 60, 0.9, 10000))
	snap := day("now", 60, 0.85, 8000) // hrv sub-score 1.0, others 0.5
	snap.Activity = models.ActivityRecord{}

	res := NewAnalyzer(DefaultWeights()).Analyze(snap, trend)
	require.Equal(t, 2, res.UsableDomains)

	act, _ := res.Domain(models.DomainActivity)
	assert.False(t, act.Usable)
	assert.Zero(t, act.Weight)

	// 0.4/0.75 * 1.0 + 0.35/0.75 * 0.5
	assert.InDelta(t, 0.4/0.75+0.35/0.75*0.5, res.Score, 1e-9)
	assert.Equal(t, models.StateGood, res.State)
}

func TestAnalyze_SleepFallsBackToTotal(t *testing.T) {
	mk := func(id string, total float64) models.Snapshot {
		s := day(id, 50, 0, 8000)
		s.Sleep = models.SleepRecord{TotalMinutes: models.Measured(total)}
		return s
	}
	trend := history(mk("d1", 400), mk("d2", 440))

	res := NewAnalyzer(DefaultWeights()).Analyze(mk("now", 440), trend)
	sleep, ok := res.Domain(models.DomainSleep)
	require.True(t, ok)
	assert.True(t, sleep.Usable)
	assert.Equal(t, models.MetricSleepTotal, sleep.Metric)
	assert.InDelta(t, 1.0, sleep.Score, 1e-9)
}

func TestAnalyze_UnknownWithFewDomains(t *testing.T) {
	trend := history(day("d1", 40, 0.8, 6000), day("d2", 60, 0.9, 10000))
	snap := models.Snapshot{
		ID:     "now",
		Vitals: models.VitalsRecord{HRV: models.Measured(70)},
	}

	res := NewAnalyzer(DefaultWeights()).Analyze(snap, trend)
	assert.Equal(t, models.StateUnknown, res.State)
	assert.Equal(t, models.ConfidenceLow, res.Confidence)
	assert.Equal(t, 1, res.UsableDomains)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 1.0)
}

func TestAnalyze_NoBaseline(t *testing.T) {
	res := NewAnalyzer(DefaultWeights()).Analyze(day("now", 50, 0.9, 8000), models.TrendAggregate{})
	assert.Equal(t, models.StateUnknown, res.State)
	assert.Zero(t, res.UsableDomains)
	assert.Zero(t, res.Score)
}

func TestAnalyze_FlatBaselineUsesEpsilon(t *testing.T) {
	trend := history(day("d1", 50, 0.9, 8000), day("d2", 50, 0.9, 8000))

	res := NewAnalyzer(DefaultWeights()).Analyze(day("now", 50, 0.9, 8000), trend)
	assert.InDelta(t, 0.5, res.Score, 1e-9)

	res = NewAnalyzer(DefaultWeights()).Analyze(day("now", 51, 0.9, 8000), trend)
	hrv, _ := res.Domain(models.DomainHRV)
	assert.Equal(t, 1.0, hrv.Score)
}

func TestAnalyze_ConfidenceFromCoverage(t *testing.T) {
	trend := history(day("d1", 40, 0.8, 6000), day("d2", 60, 0.9, 10000))

	// 4 of 6 inputs present.
	snap := day("now", 50, 0.85, 8000)
	snap.Vitals.HeartRate = models.HeartRate{}
	snap.Activity.ActiveEnergyKcal = models.Missing()
	res := NewAnalyzer(DefaultWeights()).Analyze(snap, trend)
	assert.InDelta(t, 4.0/6.0, res.Coverage, 1e-9)
	assert.Equal(t, models.ConfidenceMedium, res.Confidence)

	assert.Equal(t, models.ConfidenceHigh, ConfidenceForCoverage(0.8))
	assert.Equal(t, models.ConfidenceMedium, ConfidenceForCoverage(0.5))
	assert.Equal(t, models.ConfidenceLow, ConfidenceForCoverage(0.49))
}

func TestAnalyze_Deterministic(t *testing.T) {
	trend := history(day("d1", 40, 0.8, 6000), day("d2", 60, 0.9, 10000))
	snap := day("now", 53, 0.83, 9100)
	a := NewAnalyzer(DefaultWeights())

	first := a.Analyze(snap, trend)
	for range 10 {
		assert.Equal(t, first, a.Analyze(snap, trend))
	}
}

func TestNewAnalyzer_InvalidWeights(t *testing.T) {
	a := NewAnalyzer(Weights{})
	assert.Equal(t, DefaultWeights(), a.weights)

	a = NewAnalyzer(Weights{HRV: -1, Sleep: 1, Activity: 1})
	assert.Equal(t, DefaultWeights(), a.weights)
}
