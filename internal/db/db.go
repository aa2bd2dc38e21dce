// Package db persists per-user stats aggregates and their append-only
// session logs in an embedded SQLite database.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no aggregate exists for a user. Read paths
// treat it as a zero-valued aggregate, not a fault.
var ErrNotFound = errors.New("not found")

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS user_stats (
		user_id         TEXT PRIMARY KEY,
		tomatoes        INTEGER NOT NULL DEFAULT 0,
		plants          INTEGER NOT NULL DEFAULT 0,
		total_minutes   INTEGER NOT NULL DEFAULT 0,
		streak          INTEGER NOT NULL DEFAULT 0,
		last_study_date TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES user_stats(user_id) ON DELETE CASCADE,
		completed_at TEXT NOT NULL,
		type         TEXT NOT NULL CHECK(type IN ('tomato', 'plant')),
		duration     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_time ON sessions(user_id, completed_at)`,
}

// Open opens (or creates) the database at path and runs migrations.
// ":memory:" gives an in-memory database for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" gets its own database, so the pool
	// must stay at one connection for tests to see a single store.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	for i, stmt := range migrations {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return &Store{db: conn}, nil
}
