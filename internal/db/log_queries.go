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

// InsertStatus records a computed status. Recomputing the same snapshot
// replaces the earlier row.
func (db *DB) InsertStatus(ctx context.Context, entry models.StatusLogEntry) error {
	computedAt := entry.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now()
	}

	query := `
		INSERT INTO status_log (snapshot_id, day, score, state, confidence, coverage, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_id) DO UPDATE SET
			day = excluded.day,
			score = excluded.score,
			state = excluded.state,
			confidence = excluded.confidence,
			coverage = excluded.coverage,
			computed_at = excluded.computed_at
	`

	_, err := db.ExecContext(ctx, query,
		entry.SnapshotID,
		entry.Day,
		entry.Score,
		string(entry.State),
		string(entry.Confidence),
		entry.Coverage,
		computedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert status: %w", err)
	}
	return nil
}

// RecentStatuses returns the last status computed for each day >= fromDay,
// oldest first.
func (db *DB) RecentStatuses(ctx context.Context, fromDay string) ([]models.StatusLogEntry, error) {
	query := `
		SELECT s.day, s.snapshot_id, s.score, s.state, s.confidence, s.coverage, s.computed_at
		FROM status_log s
		WHERE s.day >= ?
		  AND s.computed_at = (
			SELECT MAX(computed_at) FROM status_log WHERE day = s.day
		  )
		GROUP BY s.day
		ORDER BY s.day ASC
	`

	rows, err := db.QueryContext(ctx, query, fromDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query status log: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var entries []models.StatusLogEntry
	for rows.Next() {
		var e models.StatusLogEntry
		var state, confidence string
		if err := rows.Scan(&e.Day, &e.SnapshotID, &e.Score, &state, &confidence, &e.Coverage, &e.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		e.State = models.State(state)
		e.Confidence = models.Confidence(confidence)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// DeleteStatusesBefore removes status rows for days earlier than day.
func (db *DB) DeleteStatusesBefore(ctx context.Context, day string) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM status_log WHERE day < ?`, day)
	if err != nil {
		return 0, fmt.Errorf("failed to purge status log: %w", err)
	}
	return result.RowsAffected()
}

// InsertAdvice records a delivered advice payload.
func (db *DB) InsertAdvice(ctx context.Context, result models.AdviceResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode advice: %w", err)
	}

	receivedAt := result.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	_, err = db.ExecContext(ctx, `
		INSERT OR REPLACE INTO advice_log (request_id, snapshot_id, attempts, received_at, payload)
		VALUES (?, ?, ?, ?, ?)`,
		result.RequestID,
		result.SnapshotID,
		result.Attempts,
		receivedAt.UTC().Format(timeLayout),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert advice: %w", err)
	}
	return nil
}

// LatestAdvice returns the most recently received advice, or nil.
func (db *DB) LatestAdvice(ctx context.Context) (*models.AdviceResult, error) {
	var payload string
	err := db.QueryRowContext(ctx,
		`SELECT payload FROM advice_log ORDER BY received_at DESC, rowid DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest advice: %w", err)
	}

	var result models.AdviceResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode advice: %w", err)
	}
	return &result, nil
}

// DeleteAdviceBefore removes advice received before cutoff.
func (db *DB) DeleteAdviceBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM advice_log WHERE received_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to purge advice log: %w", err)
	}
	return result.RowsAffected()
}
