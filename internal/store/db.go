// Package store provides the SQLite persistence layer for the audit
// trail and cycle history, with an async single-writer to keep provider
// cycles off the database's write path.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds database configuration.
type Config struct {
	Path          string
	RetentionDays int
}

// DB wraps a sql.DB with retention settings.
type DB struct {
	db            *sql.DB
	retentionDays int
}

// RawDB returns the underlying *sql.DB for components that need direct access.
func (d *DB) RawDB() *sql.DB {
	return d.db
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Open creates the directory, opens the SQLite database, sets WAL mode
// and pragmas, and ensures all tables exist.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// In WAL mode SQLite supports concurrent readers with a single writer.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	retDays := cfg.RetentionDays
	if retDays <= 0 {
		retDays = 90
	}

	d := &DB{db: sqlDB, retentionDays: retDays}

	// Purge old data at startup so retention holds even for short-lived
	// processes that never reach a periodic cleanup.
	if err := d.Cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "store: startup cleanup failed (non-fatal): %v\n", err)
	}

	return d, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS action_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			cycle_id TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			resource_kind TEXT NOT NULL,
			action TEXT NOT NULL,
			trigger_name TEXT NOT NULL,
			outcome TEXT NOT NULL,
			reason TEXT NOT NULL,
			dry_run INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_action_records_ts ON action_records(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_action_records_cycle ON action_records(cycle_id)`,
		`CREATE TABLE IF NOT EXISTS cycle_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			cycle_id TEXT NOT NULL,
			trigger_name TEXT NOT NULL,
			processed INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycle_history_ts ON cycle_history(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup deletes rows older than the retention window.
func (d *DB) Cleanup() error {
	// Timestamps are stored UTC; the cutoff must be UTC too or the
	// lexical comparison is off by the local offset.
	cutoff := time.Now().UTC().AddDate(0, 0, -d.retentionDays).Format(time.RFC3339)
	for _, table := range []string{"action_records", "cycle_history"} {
		if _, err := d.db.Exec("DELETE FROM "+table+" WHERE timestamp < ?", cutoff); err != nil {
			return fmt.Errorf("cleaning %s: %w", table, err)
		}
	}
	return nil
}

// StartCleanupLoop runs Cleanup once a day until the returned stop
// function is called.
func (d *DB) StartCleanupLoop() (stop func()) {
	ticker := time.NewTicker(24 * time.Hour)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := d.Cleanup(); err != nil {
					fmt.Fprintf(os.Stderr, "store: periodic cleanup failed: %v\n", err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
