package db

import (
	"context"
	"testing"
	"time"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

func testEntry(day string, steps float64) models.CacheEntry {
	ts, _ := time.Parse(models.DayLayout, day)
	return models.CacheEntry{
		Day: day,
		Snapshot: models.Snapshot{
			ID:        "snap-" + day,
			Timestamp: ts.Add(9 * time.Hour),
			Activity:  models.ActivityRecord{Steps: models.Measured(steps)},
			Sleep:     models.SleepRecord{Efficiency: models.Estimate(0.9)},
			Unavailable: []models.Category{
				models.CategoryNutrition,
			},
		},
		WrittenAt: time.Now(),
	}
}

func TestUpsertAndGetEntry(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.UpsertEntry(ctx, testEntry("2026-10-01", 8000)); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}

	got, err := db.GetEntry(ctx, "2026-10-01")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected entry, got nil")
	}
	if got.Snapshot.ID != "snap-2026-10-01" {
		t.Errorf("Expected snapshot ID snap-2026-10-01, got %s", got.Snapshot.ID)
	}
	if got.Snapshot.Activity.Steps.Value != 8000 || !got.Snapshot.Activity.Steps.Available {
		t.Errorf("Steps not round-tripped: %+v", got.Snapshot.Activity.Steps)
	}
	if !got.Snapshot.Sleep.Efficiency.Estimated {
		t.Error("Estimated flag lost")
	}
	if got.Snapshot.Body.WeightKg.Available {
		t.Error("Missing reading became available")
	}
	if got.Snapshot.CategoryAvailable(models.CategoryNutrition) {
		t.Error("Unavailable category lost")
	}
	if got.Invalidated {
		t.Error("Fresh entry marked invalidated")
	}
}

func TestUpsertEntry_Replaces(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_ = db.UpsertEntry(ctx, testEntry("2026-10-01", 1000))
	_ = db.InvalidateEntry(ctx, "2026-10-01")
	if err := db.UpsertEntry(ctx, testEntry("2026-10-01", 2000)); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}

	got, _ := db.GetEntry(ctx, "2026-10-01")
	if got.Snapshot.Activity.Steps.Value != 2000 {
		t.Errorf("Expected 2000 steps, got %v", got.Snapshot.Activity.Steps.Value)
	}
	if got.Invalidated {
		t.Error("Upsert should clear invalidation")
	}

	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshot_cache").Scan(&count)
	if count != 1 {
		t.Errorf("Expected 1 row, got %d", count)
	}
}

func TestGetEntry_Missing(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	got, err := db.GetEntry(context.Background(), "2026-01-01")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil, got %+v", got)
	}

	latest, err := db.LatestEntry(context.Background())
	if err != nil || latest != nil {
		t.Errorf("Expected nil latest on empty db, got %+v, %v", latest, err)
	}
}

func TestLatestAndRecentEntries(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	for i, day := range []string{"2026-10-03", "2026-10-01", "2026-10-02", "2026-09-20"} {
		if err := db.UpsertEntry(ctx, testEntry(day, float64(i))); err != nil {
			t.Fatalf("UpsertEntry failed: %v", err)
		}
	}

	latest, err := db.LatestEntry(ctx)
	if err != nil {
		t.Fatalf("LatestEntry failed: %v", err)
	}
	if latest.Day != "2026-10-03" {
		t.Errorf("Expected latest day 2026-10-03, got %s", latest.Day)
	}

	recent, err := db.RecentEntries(ctx, 3)
	if err != nil {
		t.Fatalf("RecentEntries failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(recent))
	}
	for i, want := range []string{"2026-10-01", "2026-10-02", "2026-10-03"} {
		if recent[i].Day != want {
			t.Errorf("entry %d: expected %s, got %s", i, want, recent[i].Day)
		}
	}
}

func TestInvalidateEntry(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_ = db.UpsertEntry(ctx, testEntry("2026-10-01", 1))
	if err := db.InvalidateEntry(ctx, "2026-10-01"); err != nil {
		t.Fatalf("InvalidateEntry failed: %v", err)
	}

	got, _ := db.GetEntry(ctx, "2026-10-01")
	if !got.Invalidated {
		t.Error("Expected entry to be invalidated")
	}
}

func TestDeleteEntriesBefore(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	for _, day := range []string{"2026-09-01", "2026-09-15", "2026-10-01"} {
		_ = db.UpsertEntry(ctx, testEntry(day, 1))
	}

	n, err := db.DeleteEntriesBefore(ctx, "2026-09-15")
	if err != nil {
		t.Fatalf("DeleteEntriesBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deleted row, got %d", n)
	}

	remaining, _ := db.RecentEntries(ctx, 10)
	if len(remaining) != 2 {
		t.Errorf("Expected 2 remaining entries, got %d", len(remaining))
	}
}

func TestCountEntriesWrittenSince(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	old := testEntry("2026-09-01", 1)
	old.WrittenAt = time.Now().Add(-72 * time.Hour)
	_ = db.UpsertEntry(ctx, old)
	_ = db.UpsertEntry(ctx, testEntry("2026-10-01", 1))

	n, err := db.CountEntriesWrittenSince(ctx, "-24 hours")
	if err != nil {
		t.Fatalf("CountEntriesWrittenSince failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 recent entry, got %d", n)
	}
}
