// Package services wires the telemetry pipeline together for presentation.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/Bluefinee/tempo-ai-sub007/internal/config"
	"github.com/Bluefinee/tempo-ai-sub007/internal/db"
	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services/cache"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services/delivery"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services/observer"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services/orchestrator"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services/status"
	"github.com/Bluefinee/tempo-ai-sub007/internal/telemetry"
)

type (
	// SnapshotUpdatedEvent is emitted when a new snapshot becomes current.
	SnapshotUpdatedEvent struct {
		Snapshot  models.Snapshot
		Stale     bool
		FromCache bool
	}

	// StatusUpdatedEvent is emitted after the current snapshot is analyzed.
	StatusUpdatedEvent struct {
		Status   models.StatusResult
		Previous models.State
	}

	// AdviceUpdatedEvent is emitted when the advisory service answers.
	AdviceUpdatedEvent struct {
		Advice models.AdviceResult
	}

	// PurgeEvent is emitted after a retention purge.
	PurgeEvent struct {
		Result PurgeResult
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SnapshotUpdatedEvent) isServiceEvent() {}
func (StatusUpdatedEvent) isServiceEvent()   {}
func (AdviceUpdatedEvent) isServiceEvent()   {}
func (PurgeEvent) isServiceEvent()           {}
func (ErrorEvent) isServiceEvent()           {}

// Deliverer sends an analyzed snapshot to the advisory service.
type Deliverer interface {
	Send(
		ctx context.Context,
		snap models.Snapshot,
		status models.StatusResult,
		profile models.UserProfile,
		location models.LocationContext,
	) (*models.AdviceResult, error)
}

// Options overrides the components NewManager builds from config. Zero
// fields are left out: no Notifier disables watching, no Database disables
// the status and advice logs, no Delivery disables advice.
type Options struct {
	Source     telemetry.DataSource
	Notifier   observer.Notifier
	Repository cache.Repository
	Database   *db.DB
	Delivery   Deliverer
	Profile    config.Profile
	Notify     func(title, body string) error
	Now        func() time.Time

	closers []func() error
}

// RefreshResult describes one Refresh call.
type RefreshResult struct {
	Outcome orchestrator.Outcome
	Status  *models.StatusResult
	Advice  *models.AdviceResult
	// Duplicate is set when the snapshot was already processed.
	Duplicate   bool
	DeliveryErr error
}

// PurgeResult counts rows removed by a retention purge.
type PurgeResult struct {
	Snapshots int64
	Statuses  int64
	Advice    int64
}

// Manager orchestrates services and event routing.
type Manager struct {
	cfg      *config.Config
	loc      *time.Location
	now      func() time.Time
	profile  config.Profile
	database *db.DB

	cache        *cache.Store
	orchestrator *orchestrator.Orchestrator
	analyzer     *status.Analyzer
	delivery     Deliverer
	observer     *observer.Observer
	notify       func(title, body string) error
	closers      []func() error

	refreshMu sync.Mutex

	mu          sync.RWMutex
	snapshot    *models.Snapshot
	status      *models.StatusResult
	advice      *models.AdviceResult
	lastID      string
	subscribers []chan ServiceEvent

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewManager creates a new service manager from configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}

	opts := Options{Profile: *profile}

	switch cfg.DataSource {
	case config.SourceFixture:
		fixture, err := telemetry.LoadFixture(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		opts.Source = telemetry.NewFixtureSource(*fixture)
		opts.Repository = cache.NewMemoryRepository()

	default:
		store := telemetry.NewExportStore(cfg.ExportDir)
		opts.Source = telemetry.NewAdapter(store, telemetry.AdapterConfig{Location: loc})
		opts.Notifier = store
		opts.closers = append(opts.closers, store.Close)

		database, err := db.New(cfg.DatabasePath)
		if err != nil {
			closeAll(opts.closers)
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		opts.Database = database
		opts.Repository = database
		opts.closers = append(opts.closers, database.Close)
	}

	if cfg.DeliveryEnabled {
		client, err := newDeliveryClient(cfg, *profile)
		if err != nil {
			closeAll(opts.closers)
			return nil, err
		}
		opts.Delivery = client
	}

	return NewManagerWithOptions(cfg, opts)
}

func newDeliveryClient(cfg *config.Config, profile config.Profile) (*delivery.Client, error) {
	baseURL, err := cfg.AdvisorBaseURL()
	if err != nil {
		return nil, err
	}

	locale := cfg.Locale
	if locale == "" {
		locale = profile.Locale
	}

	client, err := delivery.NewClient(delivery.Config{
		BaseURL:        baseURL,
		MaxAttempts:    cfg.DeliveryMaxAttempts,
		BaseDelay:      cfg.DeliveryBaseDelay,
		MaxDelay:       cfg.DeliveryMaxDelay,
		Jitter:         cfg.DeliveryJitter,
		AttemptTimeout: cfg.DeliveryAttemptTimeout,
		Locale:         locale,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery client: %w", err)
	}
	return client, nil
}

// NewManagerWithOptions creates a manager around explicit components.
func NewManagerWithOptions(cfg *config.Config, opts Options) (*Manager, error) {
	if opts.Source == nil {
		closeAll(opts.closers)
		return nil, errors.New("a telemetry source is required")
	}

	loc, err := cfg.Location()
	if err != nil {
		closeAll(opts.closers)
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	repo := opts.Repository
	if repo == nil {
		repo = cache.NewMemoryRepository()
	}

	notify := opts.Notify
	if notify == nil {
		notify = func(title, body string) error {
			return beeep.Notify(title, body, "")
		}
	}

	m := &Manager{
		cfg:      cfg,
		loc:      loc,
		now:      now,
		profile:  opts.Profile,
		database: opts.Database,
		delivery: opts.Delivery,
		notify:   notify,
		closers:  opts.closers,
	}

	m.cache = cache.NewStore(repo, cache.Config{
		TTL:      cfg.CacheTTL,
		Location: loc,
		Now:      now,
	})

	aggregator := telemetry.NewAggregator(opts.Source, telemetry.AggregatorConfig{
		MinCoreFraction: cfg.MinCoreFraction,
		Now:             now,
	})
	m.orchestrator = orchestrator.New(opts.Source, aggregator, m.cache)

	m.analyzer = status.NewAnalyzer(status.Weights{
		HRV:      cfg.WeightHRV,
		Sleep:    cfg.WeightSleep,
		Activity: cfg.WeightActivity,
	})

	if opts.Notifier != nil {
		m.observer = observer.New(opts.Notifier, m.cache, observer.Config{
			Debounce: cfg.Debounce,
			Refresh: func(ctx context.Context) {
				if _, err := m.Refresh(ctx); err != nil {
					logger.Warn("background refresh failed", "error", err)
				}
			},
		})
	}

	return m, nil
}

// Refresh runs one orchestrated pass, analyzes the resulting snapshot and
// delivers it for advice. Calls are serialized. An error is returned only
// when no snapshot could be produced.
func (m *Manager) Refresh(ctx context.Context) (*RefreshResult, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	out := m.orchestrator.Run(ctx)
	res := &RefreshResult{Outcome: out}

	if !out.OK() {
		m.broadcast(ErrorEvent{Service: "telemetry", Error: out.Err})
		return res, out.Err
	}
	if out.Stale {
		m.broadcast(ErrorEvent{Service: "telemetry", Error: out.Err})
	}

	snap := *out.Snapshot

	m.mu.Lock()
	duplicate := snap.ID == m.lastID
	if duplicate {
		res.Status = m.status
		res.Advice = m.advice
	}
	m.mu.Unlock()

	if duplicate {
		res.Duplicate = true
		logger.Debug("snapshot already processed", "snapshot_id", snap.ID)
		return res, nil
	}

	trend, err := m.cache.Trend(ctx, m.cfg.TrendDays)
	if err != nil {
		logger.Warn("failed to compute trend", "error", err)
		m.broadcast(ErrorEvent{Service: "cache", Error: err})
	}

	result := m.analyzer.Analyze(snap, trend)
	res.Status = &result

	m.mu.Lock()
	var previous models.State
	if m.status != nil {
		previous = m.status.State
	}
	m.snapshot = &snap
	m.status = &result
	m.lastID = snap.ID
	m.mu.Unlock()

	m.broadcast(SnapshotUpdatedEvent{Snapshot: snap, Stale: out.Stale, FromCache: out.FromCache})
	m.broadcast(StatusUpdatedEvent{Status: result, Previous: previous})
	m.recordStatus(ctx, out.Day, result)
	m.checkNotifications(previous, result)

	if out.Stale {
		logger.Info("skipping advice for stale snapshot", "snapshot_id", snap.ID, "day", out.Day)
		return res, nil
	}

	advice, err := m.deliver(ctx, snap, result)
	if err != nil {
		res.DeliveryErr = err
		m.broadcast(ErrorEvent{Service: "delivery", Error: err})
		return res, nil
	}
	res.Advice = advice
	return res, nil
}

// deliver sends snap unless advice for it is already on record.
func (m *Manager) deliver(ctx context.Context, snap models.Snapshot, result models.StatusResult) (*models.AdviceResult, error) {
	if m.delivery == nil {
		return nil, nil
	}

	if m.database != nil {
		prior, err := m.database.LatestAdvice(ctx)
		if err != nil {
			logger.Warn("failed to read advice log", "error", err)
		} else if prior != nil && prior.SnapshotID == snap.ID {
			m.setAdvice(prior)
			return prior, nil
		}
	}

	advice, err := m.delivery.Send(ctx, snap, result, m.profile.User, m.profile.Location)
	if err != nil {
		return nil, err
	}

	if m.database != nil {
		if err := m.database.InsertAdvice(ctx, *advice); err != nil {
			logger.Error("failed to record advice", "request_id", advice.RequestID, "error", err)
		}
	}

	m.setAdvice(advice)
	m.broadcast(AdviceUpdatedEvent{Advice: *advice})
	return advice, nil
}

func (m *Manager) setAdvice(advice *models.AdviceResult) {
	m.mu.Lock()
	m.advice = advice
	m.mu.Unlock()
}

func (m *Manager) recordStatus(ctx context.Context, day string, result models.StatusResult) {
	if m.database == nil {
		return
	}
	err := m.database.InsertStatus(ctx, models.StatusLogEntry{
		Day:        day,
		SnapshotID: result.SnapshotID,
		Score:      result.Score,
		State:      result.State,
		Confidence: result.Confidence,
		Coverage:   result.Coverage,
		ComputedAt: m.now(),
	})
	if err != nil {
		logger.Error("failed to record status", "day", day, "error", err)
	}
}

// checkNotifications raises a desktop alert when the state crosses into rest,
// and again when it recovers to optimal afterwards.
func (m *Manager) checkNotifications(previous models.State, result models.StatusResult) {
	if !m.cfg.Notifications || previous == "" || previous == models.StateUnknown {
		return
	}

	var title, body string
	switch {
	case result.State == models.StateRest && previous != models.StateRest:
		title = "Time to rest"
		body = fmt.Sprintf("Your wellbeing score dropped to %.0f%%.", result.Score*100)
	case result.State == models.StateOptimal && (previous == models.StateRest || previous == models.StateCare):
		title = "Recovered"
		body = fmt.Sprintf("Your wellbeing score is back to %.0f%%.", result.Score*100)
	default:
		return
	}

	if err := m.notify(title, body); err != nil {
		logger.Warn("failed to send notification", "error", err)
	}
}

// Snapshot returns the current snapshot, or nil before the first refresh.
func (m *Manager) Snapshot() *models.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Status returns the current status, or nil before the first refresh.
func (m *Manager) Status() *models.StatusResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Advice returns the latest advice. Before any delivery in this process it
// falls back to the advice log.
func (m *Manager) Advice(ctx context.Context) *models.AdviceResult {
	m.mu.RLock()
	advice := m.advice
	m.mu.RUnlock()
	if advice != nil || m.database == nil {
		return advice
	}

	advice, err := m.database.LatestAdvice(ctx)
	if err != nil {
		logger.Warn("failed to read advice log", "error", err)
		return nil
	}
	return advice
}

// Trend returns trend statistics over the most recent days entries.
func (m *Manager) Trend(ctx context.Context, days int) (models.TrendAggregate, error) {
	if days < 1 {
		days = m.cfg.TrendDays
	}
	return m.cache.Trend(ctx, days)
}

// History returns the logged status for each of the last days days. A
// non-positive days uses the trend window.
func (m *Manager) History(ctx context.Context, days int) ([]models.StatusLogEntry, error) {
	if m.database == nil {
		return nil, nil
	}
	if days < 1 {
		days = m.cfg.TrendDays
	}
	from := m.now().In(m.loc).AddDate(0, 0, -(days - 1)).Format(models.DayLayout)
	return m.database.RecentStatuses(ctx, from)
}

// Purge removes cache entries and log rows older than retentionDays.
func (m *Manager) Purge(ctx context.Context, retentionDays int) (PurgeResult, error) {
	if retentionDays < 1 {
		retentionDays = m.cfg.RetentionDays
	}

	var res PurgeResult
	var err error

	res.Snapshots, err = m.cache.PurgeOlderThan(ctx, retentionDays)
	if err != nil {
		return res, err
	}

	if m.database != nil {
		cutoff := m.now().In(m.loc).AddDate(0, 0, -retentionDays)
		res.Statuses, err = m.database.DeleteStatusesBefore(ctx, cutoff.Format(models.DayLayout))
		if err != nil {
			return res, err
		}
		res.Advice, err = m.database.DeleteAdviceBefore(ctx, cutoff)
		if err != nil {
			return res, err
		}

		if res.Snapshots+res.Statuses+res.Advice > 0 {
			if err := m.database.Vacuum(); err != nil {
				logger.Warn("failed to vacuum database", "error", err)
			}
		}
		if recent, err := m.database.CountEntriesWrittenSince(ctx, "-24 hours"); err == nil {
			logger.Debug("cache entries written in the last day", "count", recent)
		}
	}

	logger.Info("retention purge complete",
		"retention_days", retentionDays,
		"snapshots", res.Snapshots,
		"statuses", res.Statuses,
		"advice", res.Advice,
	)
	m.broadcast(PurgeEvent{Result: res})
	return res, nil
}

// StartWatching subscribes to platform changes and starts the maintenance
// loop. Calling it again restarts both.
func (m *Manager) StartWatching(ctx context.Context) error {
	m.StopWatching()

	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)

	if m.observer != nil {
		if err := m.observer.Start(watchCtx); err != nil {
			cancel()
			return fmt.Errorf("failed to start change observer: %w", err)
		}
	} else {
		logger.Info("change notifications unavailable for this data source")
	}

	m.watchCancel = cancel
	m.watchWG.Add(1)
	go m.maintain(watchCtx)
	return nil
}

// maintain purges expired rows on every maintenance tick.
func (m *Manager) maintain(ctx context.Context) {
	defer m.watchWG.Done()

	interval := m.cfg.MaintenanceInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.Purge(ctx, m.cfg.RetentionDays); err != nil && ctx.Err() == nil {
				logger.Error("maintenance purge failed", "error", err)
				m.broadcast(ErrorEvent{Service: "maintenance", Error: err})
			}
		case <-ctx.Done():
			return
		}
	}
}

// StopWatching stops the observer and the maintenance loop.
func (m *Manager) StopWatching() {
	m.watchMu.Lock()
	cancel := m.watchCancel
	m.watchCancel = nil
	m.watchMu.Unlock()

	if m.observer != nil {
		m.observer.Stop()
	}
	if cancel != nil {
		cancel()
	}
	m.watchWG.Wait()
}

// Watching reports whether StartWatching is in effect.
func (m *Manager) Watching() bool {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	return m.watchCancel != nil
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
func (m *Manager) Subscribe() chan ServiceEvent {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close stops watching and closes every owned resource. It returns the
// first error encountered.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.StopWatching()

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		var errs []error
		if err := m.cache.Close(); err != nil {
			errs = append(errs, err)
		}
		for _, c := range m.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}

		if len(errs) > 0 {
			m.closeErr = errs[0]
		}
	})
	return m.closeErr
}

func closeAll(closers []func() error) {
	for _, c := range closers {
		if err := c(); err != nil {
			logger.Error("failed to close resource", "error", err)
		}
	}
}
