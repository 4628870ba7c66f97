// Package observer turns platform change notifications into debounced cache
// invalidations and refreshes.
package observer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// DefaultDebounce coalesces bursts of notifications.
const DefaultDebounce = 500 * time.Millisecond

var triggersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tempo",
		Subsystem: "observer",
		Name:      "events_total",
		Help:      "Change notifications received and refreshes triggered.",
	},
	[]string{"kind"},
)

// Notifier delivers per-category change notifications.
// telemetry.ExportStore implements it.
type Notifier interface {
	Subscribe(category models.Category, onChange func()) (cancel func(), err error)
}

// Invalidator marks a cached day stale. cache.Store implements it.
type Invalidator interface {
	Today() string
	Invalidate(ctx context.Context, day string) error
}

// Config configures an Observer.
type Config struct {
	Categories []models.Category
	Debounce   time.Duration
	// Refresh runs after each debounced burst, on its own goroutine.
	Refresh func(ctx context.Context)
}

// Observer is restartable: Start after Start tears down the previous
// subscriptions first.
type Observer struct {
	notifier   Notifier
	cache      Invalidator
	refresh    func(ctx context.Context)
	categories []models.Category
	debounce   time.Duration

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu      sync.Mutex
	running bool
	gen     uint64
	cancels []func()
	timer   *time.Timer
	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a stopped Observer.
func New(notifier Notifier, cache Invalidator, cfg Config) *Observer {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = models.AllCategories()
	}
	if cfg.Refresh == nil {
		cfg.Refresh = func(context.Context) {}
	}
	return &Observer{
		notifier:   notifier,
		cache:      cache,
		refresh:    cfg.Refresh,
		categories: cfg.Categories,
		debounce:   cfg.Debounce,
	}
}

// Start subscribes to every category. Refreshes run under a context derived
// from ctx that is cancelled by Stop.
func (o *Observer) Start(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	o.stopLocked()

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.ctx, o.stop = context.WithCancel(ctx)
	o.running = true
	o.mu.Unlock()

	var cancels []func()
	for _, c := range o.categories {
		cancel, err := o.notifier.Subscribe(c, func() { o.notify(gen, c) })
		if err != nil {
			for _, cf := range cancels {
				cf()
			}
			o.stopLocked()
			return fmt.Errorf("failed to subscribe to %s changes: %w", c, err)
		}
		cancels = append(cancels, cancel)
	}

	o.mu.Lock()
	o.cancels = cancels
	o.mu.Unlock()

	logger.Debug("observer started", "categories", len(cancels), "debounce", o.debounce)
	return nil
}

// Running reports whether the observer is started.
func (o *Observer) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// notify is called on the notifier's goroutine and never blocks on work.
func (o *Observer) notify(gen uint64, category models.Category) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running || o.gen != gen {
		return
	}
	triggersTotal.WithLabelValues("notification").Inc()
	logger.Debug("change notification", "category", category)

	// Debounce rapid changes
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.debounce, func() { o.fire(gen) })
}

func (o *Observer) fire(gen uint64) {
	o.mu.Lock()
	if !o.running || o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	ctx := o.ctx
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		triggersTotal.WithLabelValues("refresh").Inc()

		day := o.cache.Today()
		if err := o.cache.Invalidate(ctx, day); err != nil {
			logger.Warn("failed to invalidate cache", "day", day, "error", err)
		}
		o.refresh(ctx)
	}()
}

// Stop cancels subscriptions, drops any pending debounce and waits for
// in-flight refreshes. It is safe to call on a stopped Observer.
func (o *Observer) Stop() {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()
	o.stopLocked()
}

// stopLocked tears down the current run (must hold lifecycle).
func (o *Observer) stopLocked() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cancels := o.cancels
	o.cancels = nil
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.stop != nil {
		o.stop()
	}
	o.mu.Unlock()

	// Subscriptions are cancelled outside the lock: a notifier may be
	// delivering to notify concurrently.
	for _, cancel := range cancels {
		cancel()
	}
	o.wg.Wait()
	logger.Debug("observer stopped")
}
