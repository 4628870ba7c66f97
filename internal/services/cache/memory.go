package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// MemoryRepository is an in-process Repository used by fixture mode and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]models.CacheEntry)}
}

// UpsertEntry implements Repository.
func (r *MemoryRepository) UpsertEntry(_ context.Context, entry models.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Day] = entry
	return nil
}

// GetEntry implements Repository.
func (r *MemoryRepository) GetEntry(_ context.Context, day string) (*models.CacheEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[day]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// LatestEntry implements Repository.
func (r *MemoryRepository) LatestEntry(_ context.Context) (*models.CacheEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.CacheEntry
	for _, e := range r.entries {
		if latest == nil || e.Day > latest.Day {
			latest = &e
		}
	}
	return latest, nil
}

// RecentEntries implements Repository.
func (r *MemoryRepository) RecentEntries(_ context.Context, limit int) ([]models.CacheEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.CacheEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	if limit >= 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// InvalidateEntry implements Repository.
func (r *MemoryRepository) InvalidateEntry(_ context.Context, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[day]; ok {
		e.Invalidated = true
		r.entries[day] = e
	}
	return nil
}

// DeleteEntriesBefore implements Repository.
func (r *MemoryRepository) DeleteEntriesBefore(_ context.Context, day string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for d := range r.entries {
		if d < day {
			delete(r.entries, d)
			n++
		}
	}
	return n, nil
}
