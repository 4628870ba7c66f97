// Package db manages the database connection
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-16000", // 16MB cache
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createSnapshotCacheTable(); err != nil {
		return err
	}
	if err := db.createStatusLogTable(); err != nil {
		return err
	}
	return db.createAdviceLogTable()
}

func (db *DB) createSnapshotCacheTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS snapshot_cache (
		day TEXT PRIMARY KEY,
		snapshot_id TEXT NOT NULL,
		captured_at DATETIME NOT NULL,
		written_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		invalidated INTEGER DEFAULT 0,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshot_cache_written ON snapshot_cache(written_at);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createStatusLogTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS status_log (
		snapshot_id TEXT PRIMARY KEY,
		day TEXT NOT NULL,
		score REAL DEFAULT 0,
		state TEXT NOT NULL DEFAULT 'unknown',
		confidence TEXT NOT NULL DEFAULT 'low',
		coverage REAL DEFAULT 0,
		computed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_status_log_day ON status_log(day);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createAdviceLogTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS advice_log (
		request_id TEXT PRIMARY KEY,
		snapshot_id TEXT NOT NULL,
		attempts INTEGER DEFAULT 1,
		received_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_advice_log_received ON advice_log(received_at);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
