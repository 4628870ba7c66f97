package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bluefinee/tempo-ai-sub007/internal/config"
	"github.com/Bluefinee/tempo-ai-sub007/internal/db"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services/cache"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services/orchestrator"
	"github.com/Bluefinee/tempo-ai-sub007/internal/telemetry"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Environment:     config.EnvDevelopment,
		DataSource:      config.SourceFixture,
		Timezone:        "UTC",
		CacheTTL:        time.Hour,
		RetentionDays:   30,
		TrendDays:       7,
		Debounce:        10 * time.Millisecond,
		MinCoreFraction: 0.3,
		WeightHRV:       0.4,
		WeightSleep:     0.35,
		WeightActivity:  0.25,
		Notifications:   true,
	}
}

func testFixture() telemetry.Fixture {
	return telemetry.Fixture{
		Vitals: &models.VitalsRecord{
			HeartRate: models.HeartRate{Current: models.Measured(62), Resting: models.Measured(55)},
			HRV:       models.Measured(48),
		},
		Activity: &models.ActivityRecord{Steps: models.Measured(7400)},
		Sleep:    &models.SleepRecord{TotalMinutes: models.Measured(430)},
	}
}

type fakeDeliverer struct {
	mu    sync.Mutex
	sends int
	err   error
}

func (d *fakeDeliverer) Send(
	_ context.Context,
	snap models.Snapshot,
	_ models.StatusResult,
	_ models.UserProfile,
	_ models.LocationContext,
) (*models.AdviceResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sends++
	if d.err != nil {
		return nil, d.err
	}
	return &models.AdviceResult{
		SnapshotID: snap.ID,
		RequestID:  "req-" + snap.ID,
		Advice:     models.Advice{Title: "Easy day", Summary: "Keep it light."},
		Attempts:   1,
		ReceivedAt: testNow,
	}, nil
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sends
}

type fakeNotifier struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
}

func (n *fakeNotifier) Subscribe(_ models.Category, fn func()) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	n.next++
	id := n.next
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}, nil
}

func (n *fakeNotifier) fire() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (n *fakeNotifier) active() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.Source == nil {
		opts.Source = telemetry.NewFixtureSource(testFixture())
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	if opts.Notify == nil {
		opts.Notify = func(string, string) error { return nil }
	}
	if opts.Database != nil && opts.Repository == nil {
		opts.Repository = opts.Database
	}
	mgr, err := NewManagerWithOptions(testConfig(), opts)
	if err != nil {
		t.Fatalf("NewManagerWithOptions failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func completeFixture() telemetry.Fixture {
	f := testFixture()
	f.Sleep.Efficiency = models.Measured(0.91)
	f.Activity.ActiveEnergyKcal = models.Measured(520)
	return f
}

func TestManager_RefreshEmptyCacheFullData(t *testing.T) {
	repo := cache.NewMemoryRepository()
	mgr := newTestManager(t, Options{
		Source:     telemetry.NewFixtureSource(completeFixture()),
		Repository: repo,
	})

	res, err := mgr.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	want := []orchestrator.State{orchestrator.StateCheckFresh, orchestrator.StateLiveFetch, orchestrator.StateDone}
	if len(res.Outcome.Path) != len(want) {
		t.Fatalf("path = %v, want %v", res.Outcome.Path, want)
	}
	for i := range want {
		if res.Outcome.Path[i] != want[i] {
			t.Fatalf("path = %v, want %v", res.Outcome.Path, want)
		}
	}
	if res.Outcome.Stale || res.Outcome.FromCache {
		t.Errorf("outcome = %+v, want a live result", res.Outcome)
	}

	entry, err := repo.GetEntry(context.Background(), "2026-10-18")
	if err != nil || entry == nil {
		t.Fatalf("no cache entry for today: %v", err)
	}
	if entry.Snapshot.ID != res.Outcome.Snapshot.ID {
		t.Errorf("cached snapshot %s, refreshed %s", entry.Snapshot.ID, res.Outcome.Snapshot.ID)
	}

	if res.Status == nil {
		t.Fatal("expected a status")
	}
	if res.Status.Confidence != models.ConfidenceHigh {
		t.Errorf("confidence = %s (coverage %.2f), want high", res.Status.Confidence, res.Status.Coverage)
	}
}

func TestNewManager_FixtureSource(t *testing.T) {
	tmpDir := t.TempDir()
	fixturePath := filepath.Join(tmpDir, "fixture.json")
	data, err := json.Marshal(testFixture())
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(fixturePath, data, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg := testConfig()
	cfg.FixturePath = fixturePath
	cfg.ProfilePath = filepath.Join(tmpDir, "profile.yaml")
	cfg.DatabasePath = filepath.Join(tmpDir, "test.db")

	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer mgr.Close()

	if mgr.Snapshot() != nil || mgr.Status() != nil {
		t.Error("state should be empty before the first refresh")
	}

	res, err := mgr.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if res.Status == nil {
		t.Fatal("expected a status result")
	}
	if mgr.Snapshot() == nil || mgr.Snapshot().ID != res.Status.SnapshotID {
		t.Error("current snapshot should match the analyzed snapshot")
	}
	if res.Advice != nil || mgr.Advice(context.Background()) != nil {
		t.Error("delivery is disabled, no advice expected")
	}
	if _, err := os.Stat(cfg.DatabasePath); !errors.Is(err, os.ErrNotExist) {
		t.Error("fixture mode should not create a database file")
	}
}

func TestNewManager_MissingFixture(t *testing.T) {
	cfg := testConfig()
	cfg.FixturePath = filepath.Join(t.TempDir(), "missing.json")
	cfg.ProfilePath = filepath.Join(t.TempDir(), "profile.yaml")

	if _, err := NewManager(cfg); err == nil {
		t.Error("expected an error for a missing fixture")
	}
}

func TestNewManagerWithOptions_RequiresSource(t *testing.T) {
	if _, err := NewManagerWithOptions(testConfig(), Options{}); err == nil {
		t.Error("expected an error without a telemetry source")
	}
}

func TestManager_RefreshDeliversOnce(t *testing.T) {
	database := openTestDB(t)
	deliverer := &fakeDeliverer{}
	mgr := newTestManager(t, Options{Database: database, Delivery: deliverer})
	ctx := context.Background()

	first, err := mgr.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if first.Advice == nil {
		t.Fatal("expected advice on the first refresh")
	}
	if first.Duplicate {
		t.Error("first refresh should not be a duplicate")
	}

	second, err := mgr.Refresh(ctx)
	if err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
	if !second.Duplicate {
		t.Error("fresh cache should serve the same snapshot")
	}
	if !second.Outcome.FromCache {
		t.Error("second refresh should come from the cache")
	}
	if deliverer.count() != 1 {
		t.Errorf("sends = %d, want 1", deliverer.count())
	}

	history, err := mgr.History(ctx, 7)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].SnapshotID != first.Status.SnapshotID {
		t.Errorf("history = %+v, want one entry for the delivered snapshot", history)
	}

	stored, err := database.LatestAdvice(ctx)
	if err != nil {
		t.Fatalf("LatestAdvice failed: %v", err)
	}
	if stored == nil || stored.RequestID != first.Advice.RequestID {
		t.Errorf("advice log = %+v, want request %s", stored, first.Advice.RequestID)
	}
}

func TestManager_DeduplicatesAcrossRestarts(t *testing.T) {
	database := openTestDB(t)
	deliverer := &fakeDeliverer{}
	ctx := context.Background()

	first, err := NewManagerWithOptions(testConfig(), Options{
		Source:     telemetry.NewFixtureSource(testFixture()),
		Repository: database,
		Database:   database,
		Delivery:   deliverer,
		Now:        func() time.Time { return testNow },
		Notify:     func(string, string) error { return nil },
	})
	if err != nil {
		t.Fatalf("NewManagerWithOptions failed: %v", err)
	}
	if _, err := first.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := newTestManager(t, Options{Database: database, Delivery: deliverer})
	res, err := second.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if res.Advice == nil {
		t.Error("advice should be restored from the log")
	}
	if deliverer.count() != 1 {
		t.Errorf("sends = %d, want 1", deliverer.count())
	}
}

func TestManager_RefreshFailureBroadcastsError(t *testing.T) {
	mgr := newTestManager(t, Options{Source: telemetry.NewFixtureSource(telemetry.Fixture{})})
	events := mgr.Subscribe()

	res, err := mgr.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected an error for an empty fixture")
	}
	if res.Outcome.OK() {
		t.Error("outcome should not be OK")
	}

	select {
	case ev := <-events:
		errEv, ok := ev.(ErrorEvent)
		if !ok || errEv.Service != "telemetry" {
			t.Errorf("event = %#v, want telemetry ErrorEvent", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestManager_DeliveryErrorKeepsStatus(t *testing.T) {
	deliverer := &fakeDeliverer{err: errors.New("advisor down")}
	mgr := newTestManager(t, Options{Delivery: deliverer})
	events := mgr.Subscribe()

	res, err := mgr.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh should not fail on delivery errors: %v", err)
	}
	if res.DeliveryErr == nil {
		t.Error("expected a delivery error")
	}
	if mgr.Status() == nil {
		t.Error("status should be available despite the delivery failure")
	}

	var sawSnapshot, sawStatus, sawError bool
	for range 3 {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case SnapshotUpdatedEvent:
				sawSnapshot = true
			case StatusUpdatedEvent:
				sawStatus = true
			case ErrorEvent:
				sawError = e.Service == "delivery"
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	if !sawSnapshot || !sawStatus || !sawError {
		t.Errorf("events: snapshot=%v status=%v deliveryError=%v", sawSnapshot, sawStatus, sawError)
	}
}

func TestManager_Subscription(t *testing.T) {
	mgr := newTestManager(t, Options{})

	ch := mgr.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe returned nil channel")
	}

	mgr.broadcast(ErrorEvent{Service: "test", Error: errors.New("boom")})
	select {
	case ev := <-ch:
		if e, ok := ev.(ErrorEvent); !ok || e.Service != "test" {
			t.Errorf("unexpected event %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	mgr.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
}

func TestManager_BroadcastDoesNotBlock(t *testing.T) {
	mgr := newTestManager(t, Options{})
	_ = mgr.Subscribe()

	done := make(chan struct{})
	go func() {
		for range 200 {
			mgr.broadcast(ErrorEvent{Service: "test"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
}

func TestManager_CheckNotifications(t *testing.T) {
	tests := []struct {
		name     string
		previous models.State
		next     models.State
		enabled  bool
		want     string
	}{
		{"drop to rest", models.StateGood, models.StateRest, true, "Time to rest"},
		{"still resting", models.StateRest, models.StateRest, true, ""},
		{"recovered", models.StateRest, models.StateOptimal, true, "Recovered"},
		{"good to optimal", models.StateGood, models.StateOptimal, true, ""},
		{"first result", "", models.StateRest, true, ""},
		{"from unknown", models.StateUnknown, models.StateRest, true, ""},
		{"disabled", models.StateGood, models.StateRest, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			mgr := newTestManager(t, Options{Notify: func(title, _ string) error {
				got = title
				return nil
			}})
			mgr.cfg.Notifications = tt.enabled

			mgr.checkNotifications(tt.previous, models.StatusResult{State: tt.next, Score: 0.3})
			if got != tt.want {
				t.Errorf("notification = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestManager_Purge(t *testing.T) {
	database := openTestDB(t)
	mgr := newTestManager(t, Options{Database: database})
	ctx := context.Background()

	old := testNow.AddDate(0, 0, -60)
	oldDay := old.Format(models.DayLayout)

	if err := database.UpsertEntry(ctx, models.CacheEntry{
		Day:       oldDay,
		Snapshot:  models.Snapshot{ID: "old", Timestamp: old},
		WrittenAt: old,
	}); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}
	if err := database.InsertStatus(ctx, models.StatusLogEntry{
		Day: oldDay, SnapshotID: "old", State: models.StateGood, ComputedAt: old,
	}); err != nil {
		t.Fatalf("InsertStatus failed: %v", err)
	}
	if err := database.InsertAdvice(ctx, models.AdviceResult{
		SnapshotID: "old", RequestID: "req-old", ReceivedAt: old,
	}); err != nil {
		t.Fatalf("InsertAdvice failed: %v", err)
	}

	if _, err := mgr.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	res, err := mgr.Purge(ctx, 30)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	want := PurgeResult{Snapshots: 1, Statuses: 1, Advice: 1}
	if res != want {
		t.Errorf("Purge = %+v, want %+v", res, want)
	}

	if mgr.Snapshot() == nil {
		t.Fatal("current snapshot missing")
	}
	latest, err := database.LatestEntry(ctx)
	if err != nil || latest == nil || latest.Snapshot.ID != mgr.Snapshot().ID {
		t.Errorf("today's entry should survive the purge, got %+v (err %v)", latest, err)
	}
}

func TestManager_Trend(t *testing.T) {
	mgr := newTestManager(t, Options{})
	ctx := context.Background()

	if _, err := mgr.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	trend, err := mgr.Trend(ctx, 0)
	if err != nil {
		t.Fatalf("Trend failed: %v", err)
	}
	steps, ok := trend.Metric(models.MetricSteps)
	if !ok {
		t.Fatal("expected a steps trend")
	}
	if steps.Samples != 1 || steps.Mean != 7400 {
		t.Errorf("steps trend = %+v", steps)
	}
}

func TestManager_WatchRefreshesOnChange(t *testing.T) {
	notifier := &fakeNotifier{}
	var clock atomic.Int64
	clock.Store(testNow.UnixNano())

	mgr := newTestManager(t, Options{
		Notifier: notifier,
		Now:      func() time.Time { return time.Unix(0, clock.Load()).UTC() },
	})
	ctx := context.Background()

	first, err := mgr.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	events := mgr.Subscribe()
	if err := mgr.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	if !mgr.Watching() {
		t.Error("manager should report watching")
	}
	if notifier.active() != len(models.AllCategories()) {
		t.Errorf("subscriptions = %d, want %d", notifier.active(), len(models.AllCategories()))
	}

	clock.Add(int64(time.Minute))
	notifier.fire()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if e, ok := ev.(StatusUpdatedEvent); ok {
				if e.Status.SnapshotID == first.Status.SnapshotID {
					t.Error("change notification should produce a new snapshot")
				}
				mgr.StopWatching()
				if notifier.active() != 0 {
					t.Errorf("subscriptions after stop = %d, want 0", notifier.active())
				}
				return
			}
		case <-deadline:
			t.Fatal("no status update after change notification")
		}
	}
}

func TestManager_Close(t *testing.T) {
	mgr := newTestManager(t, Options{Notifier: &fakeNotifier{}})
	ch := mgr.Subscribe()

	if err := mgr.StartWatching(context.Background()); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed")
	}
	if mgr.Watching() {
		t.Error("manager should stop watching on Close")
	}
}

func TestServiceEvent_Interface(t *testing.T) {
	events := []ServiceEvent{
		SnapshotUpdatedEvent{},
		StatusUpdatedEvent{},
		AdviceUpdatedEvent{},
		PurgeEvent{},
		ErrorEvent{},
	}
	if len(events) != 5 {
		t.Errorf("expected 5 event types, got %d", len(events))
	}
}

func TestManager_HistoryDefaultWindow(t *testing.T) {
	database := openTestDB(t)
	mgr := newTestManager(t, Options{Database: database})
	ctx := context.Background()

	for _, e := range []models.StatusLogEntry{
		{Day: "2026-10-18", SnapshotID: "today", State: models.StateGood, Score: 0.7},
		{Day: "2026-10-15", SnapshotID: "recent", State: models.StateCare, Score: 0.5},
		{Day: "2026-10-01", SnapshotID: "old", State: models.StateRest, Score: 0.2},
	} {
		if err := database.InsertStatus(ctx, e); err != nil {
			t.Fatalf("InsertStatus failed: %v", err)
		}
	}

	for _, days := range []int{0, -3} {
		history, err := mgr.History(ctx, days)
		if err != nil {
			t.Fatalf("History(%d) failed: %v", days, err)
		}
		if len(history) != 2 {
			t.Errorf("History(%d) = %d entries, want the 7-day window (2)", days, len(history))
		}
	}

	history, err := mgr.History(ctx, 1)
	if err != nil {
		t.Fatalf("History(1) failed: %v", err)
	}
	if len(history) != 1 || history[0].SnapshotID != "today" {
		t.Errorf("History(1) = %+v, want today only", history)
	}
}
