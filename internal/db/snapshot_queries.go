package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

const selectEntryColumns = `SELECT day, written_at, invalidated, payload FROM snapshot_cache`

// UpsertEntry stores the snapshot for entry.Day, replacing any previous one.
func (db *DB) UpsertEntry(ctx context.Context, entry models.CacheEntry) error {
	payload, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	writtenAt := entry.WrittenAt
	if writtenAt.IsZero() {
		writtenAt = time.Now()
	}

	query := `
		INSERT INTO snapshot_cache (day, snapshot_id, captured_at, written_at, invalidated, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			captured_at = excluded.captured_at,
			written_at = excluded.written_at,
			invalidated = excluded.invalidated,
			payload = excluded.payload
	`

	_, err = db.ExecContext(ctx, query,
		entry.Day,
		entry.Snapshot.ID,
		entry.Snapshot.Timestamp.UTC().Format(timeLayout),
		writtenAt.UTC().Format(timeLayout),
		entry.Invalidated,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// GetEntry returns the entry for day, or nil if none exists.
func (db *DB) GetEntry(ctx context.Context, day string) (*models.CacheEntry, error) {
	row := db.QueryRowContext(ctx, selectEntryColumns+` WHERE day = ?`, day)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return entry, nil
}

// LatestEntry returns the entry with the most recent day, or nil.
func (db *DB) LatestEntry(ctx context.Context) (*models.CacheEntry, error) {
	row := db.QueryRowContext(ctx, selectEntryColumns+` ORDER BY day DESC LIMIT 1`)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cache entry: %w", err)
	}
	return entry, nil
}

// RecentEntries returns the limit most recent entries, oldest first.
func (db *DB) RecentEntries(ctx context.Context, limit int) ([]models.CacheEntry, error) {
	query := `SELECT day, written_at, invalidated, payload FROM (
		` + selectEntryColumns + ` ORDER BY day DESC LIMIT ?
	) ORDER BY day ASC`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var entries []models.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// InvalidateEntry marks the entry for day stale without deleting it.
func (db *DB) InvalidateEntry(ctx context.Context, day string) error {
	_, err := db.ExecContext(ctx, `UPDATE snapshot_cache SET invalidated = 1 WHERE day = ?`, day)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// DeleteEntriesBefore removes entries whose day is earlier than day.
func (db *DB) DeleteEntriesBefore(ctx context.Context, day string) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM snapshot_cache WHERE day < ?`, day)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache entries: %w", err)
	}
	return result.RowsAffected()
}

// CountEntriesWrittenSince counts entries written within the SQLite
// modifier window, e.g. "-24 hours".
func (db *DB) CountEntriesWrittenSince(ctx context.Context, window string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_cache WHERE `+sqlWrittenSinceClause, window).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.CacheEntry, error) {
	var (
		entry   models.CacheEntry
		payload string
	)
	if err := row.Scan(&entry.Day, &entry.WrittenAt, &entry.Invalidated, &payload); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &entry.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for %s: %w", entry.Day, err)
	}
	return &entry, nil
}
