package telemetry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// DefaultMinCoreFraction is the share of core metrics that must be present.
const DefaultMinCoreFraction = 0.3

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	Categories      []models.Category
	MinCoreFraction float64
	Now             func() time.Time
	NewID           func() string
}

// Aggregator fans out category fetches and joins them into one Snapshot.
type Aggregator struct {
	source          DataSource
	categories      []models.Category
	minCoreFraction float64
	now             func() time.Time
	newID           func() string
}

// NewAggregator creates an Aggregator reading from source.
func NewAggregator(source DataSource, cfg AggregatorConfig) *Aggregator {
	if len(cfg.Categories) == 0 {
		cfg.Categories = models.AllCategories()
	}
	if cfg.MinCoreFraction <= 0 {
		cfg.MinCoreFraction = DefaultMinCoreFraction
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Aggregator{
		source:          source,
		categories:      slices.Clone(cfg.Categories),
		minCoreFraction: cfg.MinCoreFraction,
		now:             cfg.Now,
		newID:           cfg.NewID,
	}
}

type categoryResult struct {
	record      models.CategoryRecord
	unavailable bool
}

// Aggregate fetches every category concurrently. Any category that is
// unauthorized or whose platform is unavailable fails the whole call; a
// category without recent data is recorded as unavailable instead.
func (a *Aggregator) Aggregate(ctx context.Context) (models.Snapshot, error) {
	results := make([]categoryResult, len(a.categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range a.categories {
		g.Go(func() error {
			start := time.Now()
			rec, err := a.source.FetchCategory(gctx, kind)
			categoryFetchSeconds.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

			switch {
			case err == nil:
				results[i] = categoryResult{record: rec}
			case errors.Is(err, ErrNoRecentData):
				logger.Debug("category has no recent data", "category", kind)
				results[i] = categoryResult{unavailable: true}
			default:
				return &CategoryError{Category: kind, Err: err}
			}
			return nil
		})
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		aggregationsTotal.WithLabelValues("cancelled").Inc()
		return models.Snapshot{}, fmt.Errorf("aggregation cancelled: %w", ctxErr)
	}
	if err != nil {
		aggregationsTotal.WithLabelValues("failed").Inc()
		return models.Snapshot{}, err
	}

	snap, err := a.assemble(results)
	if err != nil {
		aggregationsTotal.WithLabelValues("failed").Inc()
		return models.Snapshot{}, err
	}

	if err := a.checkSufficiency(snap); err != nil {
		aggregationsTotal.WithLabelValues("insufficient").Inc()
		return models.Snapshot{}, err
	}

	aggregationsTotal.WithLabelValues("ok").Inc()
	return snap, nil
}

// assemble builds the Snapshot once every child has been accounted for.
func (a *Aggregator) assemble(results []categoryResult) (models.Snapshot, error) {
	snap := models.Snapshot{ID: a.newID()}

	for i, kind := range a.categories {
		res := results[i]
		if res.unavailable || res.record == nil {
			snap.Unavailable = append(snap.Unavailable, kind)
			continue
		}

		switch rec := res.record.(type) {
		case models.VitalsRecord:
			snap.Vitals = rec
		case models.ActivityRecord:
			snap.Activity = rec
		case models.BodyRecord:
			snap.Body = rec
		case models.SleepRecord:
			snap.Sleep = rec
		case models.NutritionRecord:
			snap.Nutrition = rec
		default:
			return models.Snapshot{}, fmt.Errorf("unexpected record type %T for %s", rec, kind)
		}
	}

	for _, kind := range models.AllCategories() {
		if !slices.Contains(a.categories, kind) && !slices.Contains(snap.Unavailable, kind) {
			snap.Unavailable = append(snap.Unavailable, kind)
		}
	}

	snap.Timestamp = a.now()
	return snap, nil
}

type coreCheck struct {
	name           string
	recommendation string
	present        func(models.Snapshot) bool
}

var coreChecks = []coreCheck{
	{
		name:           "heart_rate",
		recommendation: "Grant heart-rate permission and wear a device that records heart rate.",
		present: func(s models.Snapshot) bool {
			hr := s.Vitals.HeartRate
			return hr.Current.Available || hr.Average.Available || hr.Resting.Available
		},
	},
	{
		name:           "steps",
		recommendation: "Grant step-count permission and carry your phone or wearable.",
		present: func(s models.Snapshot) bool {
			return s.Activity.Steps.Available
		},
	},
	{
		name:           "sleep",
		recommendation: "Enable sleep tracking and grant sleep-analysis permission.",
		present: func(s models.Snapshot) bool {
			for _, r := range s.Sleep.Readings() {
				if r.Available {
					return true
				}
			}
			return false
		},
	},
}

// checkSufficiency fails when too few core metrics are present. Categories
// that were attempted but came back unavailable count as missing.
func (a *Aggregator) checkSufficiency(snap models.Snapshot) error {
	var missing, recs []string
	for _, c := range coreChecks {
		if !c.present(snap) {
			missing = append(missing, c.name)
			recs = append(recs, c.recommendation)
		}
	}

	present := len(coreChecks) - len(missing)
	if float64(present)/float64(len(coreChecks)) < a.minCoreFraction {
		return &InsufficientDataError{Missing: missing, Recommendations: recs}
	}
	return nil
}
