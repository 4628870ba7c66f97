// Package cache persists one Snapshot per calendar day with a staleness
// policy and derives rolling trend statistics from the stored history.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// DefaultTTL is how long a cached snapshot stays fresh.
const DefaultTTL = time.Hour

var (
	// ErrCacheWriteFailed wraps any failure to persist or mutate an entry.
	ErrCacheWriteFailed = errors.New("cache write failed")
	// ErrNotFound is returned when no entry matches.
	ErrNotFound = errors.New("cache entry not found")
	// ErrClosed is returned for writes submitted after Close.
	ErrClosed = errors.New("cache store closed")
)

// Repository is the storage port. *db.DB and *MemoryRepository implement it.
type Repository interface {
	UpsertEntry(ctx context.Context, entry models.CacheEntry) error
	GetEntry(ctx context.Context, day string) (*models.CacheEntry, error)
	LatestEntry(ctx context.Context) (*models.CacheEntry, error)
	RecentEntries(ctx context.Context, limit int) ([]models.CacheEntry, error)
	InvalidateEntry(ctx context.Context, day string) error
	DeleteEntriesBefore(ctx context.Context, day string) (int64, error)
}

// Config configures a Store.
type Config struct {
	TTL      time.Duration
	Location *time.Location
	Now      func() time.Time
}

type writeResult struct {
	n   int64
	err error
}

type writeOp struct {
	ctx    context.Context
	name   string
	apply  func(ctx context.Context) (int64, error)
	result chan writeResult
}

// Store is the cache front. Mutations are serialized through a single writer
// goroutine; reads go straight to the repository.
type Store struct {
	repo Repository
	ttl  time.Duration
	loc  *time.Location
	now  func() time.Time

	writes    chan writeOp
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore creates a Store and starts its writer.
func NewStore(repo Repository, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Store{
		repo:   repo,
		ttl:    cfg.TTL,
		loc:    cfg.Location,
		now:    cfg.Now,
		writes: make(chan writeOp),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.writer()
	return s
}

func (s *Store) writer() {
	defer close(s.done)

	for {
		select {
		case op := <-s.writes:
			if err := op.ctx.Err(); err != nil {
				op.result <- writeResult{err: err}
				continue
			}
			n, err := op.apply(op.ctx)
			if err != nil {
				writeFailures.WithLabelValues(op.name).Inc()
			}
			op.result <- writeResult{n: n, err: err}
		case <-s.quit:
			return
		}
	}
}

// submit hands op to the writer and waits for its result.
func (s *Store) submit(ctx context.Context, name string, apply func(ctx context.Context) (int64, error)) (int64, error) {
	op := writeOp{
		ctx:    ctx,
		name:   name,
		apply:  apply,
		result: make(chan writeResult, 1),
	}

	select {
	case s.writes <- op:
	case <-s.quit:
		return 0, fmt.Errorf("%w: %w", ErrCacheWriteFailed, ErrClosed)
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %w", ErrCacheWriteFailed, ctx.Err())
	}

	res := <-op.result
	if res.err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrCacheWriteFailed, name, res.err)
	}
	return res.n, nil
}

// Today returns the day key for the current time.
func (s *Store) Today() string {
	return s.now().In(s.loc).Format(models.DayLayout)
}

// DayOf returns the day key a snapshot is stored under.
func (s *Store) DayOf(snap models.Snapshot) string {
	return snap.Day(s.loc)
}

// IsFresh reports whether day has an entry that is not invalidated and was
// written less than TTL ago. Read errors count as stale.
func (s *Store) IsFresh(ctx context.Context, day string) bool {
	entry, err := s.repo.GetEntry(ctx, day)
	if err != nil {
		logger.Warn("cache freshness check failed", "day", day, "error", err)
		return false
	}
	fresh := entry != nil && !entry.Invalidated && s.now().Sub(entry.WrittenAt) < s.ttl
	if fresh {
		lookups.WithLabelValues("fresh").Inc()
	} else {
		lookups.WithLabelValues("stale").Inc()
	}
	return fresh
}

// Get returns the snapshot stored for day.
func (s *Store) Get(ctx context.Context, day string) (*models.Snapshot, error) {
	entry, err := s.repo.GetEntry(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%s: %w", day, ErrNotFound)
	}
	snap := entry.Snapshot
	return &snap, nil
}

// Latest returns the most recent entry of any day.
func (s *Store) Latest(ctx context.Context) (*models.CacheEntry, error) {
	entry, err := s.repo.LatestEntry(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest cache entry: %w", err)
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Put stores snap under its day, replacing the previous entry unless that
// entry holds a newer snapshot.
func (s *Store) Put(ctx context.Context, snap models.Snapshot) error {
	day := s.DayOf(snap)
	_, err := s.submit(ctx, "put", func(ctx context.Context) (int64, error) {
		existing, err := s.repo.GetEntry(ctx, day)
		if err != nil {
			return 0, err
		}
		if existing != nil && existing.Snapshot.Timestamp.After(snap.Timestamp) {
			logger.Debug("skipping older snapshot", "day", day, "snapshot", snap.ID, "current", existing.Snapshot.ID)
			return 0, nil
		}
		return 1, s.repo.UpsertEntry(ctx, models.CacheEntry{
			Day:       day,
			Snapshot:  snap,
			WrittenAt: s.now(),
		})
	})
	return err
}

// Invalidate marks day stale so the next IsFresh reports false.
func (s *Store) Invalidate(ctx context.Context, day string) error {
	_, err := s.submit(ctx, "invalidate", func(ctx context.Context) (int64, error) {
		return 0, s.repo.InvalidateEntry(ctx, day)
	})
	return err
}

// PurgeOlderThan deletes entries more than retentionDays days before today.
func (s *Store) PurgeOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("retention must not be negative: %d", retentionDays)
	}
	cutoff := s.now().In(s.loc).AddDate(0, 0, -retentionDays).Format(models.DayLayout)
	n, err := s.submit(ctx, "purge", func(ctx context.Context) (int64, error) {
		return s.repo.DeleteEntriesBefore(ctx, cutoff)
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("purged cache entries", "count", n, "before", cutoff)
	}
	return n, nil
}

// Trend computes statistics over up to days most recent entries. A shorter
// history yields fewer entries, not an error.
func (s *Store) Trend(ctx context.Context, days int) (models.TrendAggregate, error) {
	if days < 1 {
		return models.TrendAggregate{}, fmt.Errorf("trend window must be at least one day: %d", days)
	}
	entries, err := s.repo.RecentEntries(ctx, days)
	if err != nil {
		return models.TrendAggregate{}, fmt.Errorf("failed to read trend entries: %w", err)
	}
	return ComputeTrend(entries), nil
}

// Close stops the writer. Writes submitted afterwards fail with ErrClosed.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
	return nil
}
