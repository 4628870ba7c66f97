// Package orchestrator sequences fresh cache, live fetch, stale cache and
// failure into a single refresh pass.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
	"github.com/Bluefinee/tempo-ai-sub007/internal/telemetry"
)

// State is a step of a refresh pass.
type State string

// Refresh states. Done and Failed are terminal.
const (
	StateCheckFresh    State = "check_fresh"
	StateLiveFetch     State = "live_fetch"
	StateStaleFallback State = "stale_fallback"
	StateFailed        State = "failed"
	StateDone          State = "done"
)

var runsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tempo",
		Name:      "refresh_runs_total",
		Help:      "Refresh passes by result.",
	},
	[]string{"result"},
)

// Aggregator produces a live Snapshot.
type Aggregator interface {
	Aggregate(ctx context.Context) (models.Snapshot, error)
}

// Cache is the part of cache.Store the orchestrator needs.
type Cache interface {
	Today() string
	IsFresh(ctx context.Context, day string) bool
	Get(ctx context.Context, day string) (*models.Snapshot, error)
	Put(ctx context.Context, snap models.Snapshot) error
	Latest(ctx context.Context) (*models.CacheEntry, error)
}

// Outcome is the result of one Run.
type Outcome struct {
	State    State
	Path     []State
	Snapshot *models.Snapshot
	// Stale marks a snapshot served from an older cache entry after a
	// failed live fetch. Err then holds the live failure.
	Stale     bool
	FromCache bool
	Day       string
	Err       error
}

// OK reports whether a snapshot was produced.
func (o Outcome) OK() bool {
	return o.State == StateDone && o.Snapshot != nil
}

func (o Outcome) result() string {
	switch {
	case o.State == StateFailed:
		return "failed"
	case o.Stale:
		return "stale"
	case o.FromCache:
		return "fresh_cache"
	default:
		return "live"
	}
}

// Orchestrator runs single-pass refreshes. It never retries.
type Orchestrator struct {
	source     telemetry.DataSource
	aggregator Aggregator
	cache      Cache
}

// New creates an Orchestrator.
func New(source telemetry.DataSource, aggregator Aggregator, cache Cache) *Orchestrator {
	return &Orchestrator{source: source, aggregator: aggregator, cache: cache}
}

// Run performs one refresh pass.
func (o *Orchestrator) Run(ctx context.Context) Outcome {
	out := o.run(ctx)
	runsTotal.WithLabelValues(out.result()).Inc()
	return out
}

func (o *Orchestrator) run(ctx context.Context) Outcome {
	out := Outcome{}
	visit := func(s State) {
		out.State = s
		out.Path = append(out.Path, s)
	}

	visit(StateCheckFresh)
	today := o.cache.Today()
	if o.cache.IsFresh(ctx, today) {
		snap, err := o.cache.Get(ctx, today)
		if err == nil {
			visit(StateDone)
			out.Snapshot = snap
			out.FromCache = true
			out.Day = today
			return out
		}
		logger.Warn("fresh cache entry unreadable, fetching live", "day", today, "error", err)
	}

	visit(StateLiveFetch)
	snap, liveErr := o.fetch(ctx)
	if liveErr == nil {
		if err := o.cache.Put(ctx, snap); err != nil {
			logger.Error("failed to cache snapshot", "snapshot", snap.ID, "error", err)
		}
		visit(StateDone)
		out.Snapshot = &snap
		out.Day = today
		return out
	}
	logger.Warn("live fetch failed", "error", liveErr)

	visit(StateStaleFallback)
	out.Err = liveErr
	entry, err := o.cache.Latest(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Debug("no stale snapshot available", "error", err)
		}
		visit(StateFailed)
		return out
	}

	visit(StateDone)
	stale := entry.Snapshot
	out.Snapshot = &stale
	out.Stale = true
	out.FromCache = true
	out.Day = entry.Day
	return out
}

func (o *Orchestrator) fetch(ctx context.Context) (models.Snapshot, error) {
	if _, err := o.source.RequestAuthorization(ctx); err != nil {
		return models.Snapshot{}, fmt.Errorf("authorization failed: %w", err)
	}
	snap, err := o.aggregator.Aggregate(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}
