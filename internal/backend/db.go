// Package backend provides the reference schedule backend: the external
// collaborator that owns durable alarm/timer/Pomodoro/stopwatch state and
// pushes trigger and snapshot events to the reconciliation controller.
package backend

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenDB opens a SQLite database at the given path. If path is
// ":memory:", uses an in-memory database. Sets WAL mode and runs the
// schema migration automatically.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alarms (
			id             TEXT PRIMARY KEY,
			label          TEXT NOT NULL,
			hour           INTEGER NOT NULL,
			minute         INTEGER NOT NULL,
			recurrence     TEXT NOT NULL,
			enabled        INTEGER NOT NULL DEFAULT 1,
			snoozed_until  INTEGER,
			last_triggered INTEGER,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS timers (
			id         TEXT PRIMARY KEY,
			label      TEXT NOT NULL,
			seconds    INTEGER NOT NULL,
			end_time   INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS presets (
			id      TEXT PRIMARY KEY,
			seconds INTEGER NOT NULL,
			label   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pomodoro_days (
			day           TEXT PRIMARY KEY,
			focus_seconds INTEGER NOT NULL DEFAULT 0,
			break_seconds INTEGER NOT NULL DEFAULT 0,
			sessions      INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS pomodoro_state (
			id          INTEGER PRIMARY KEY CHECK (id = 1),
			phase       TEXT NOT NULL DEFAULT 'idle',
			session_idx INTEGER NOT NULL DEFAULT 0,
			cycle_idx   INTEGER NOT NULL DEFAULT 0,
			phase_end   INTEGER
		)`,
		`INSERT OR IGNORE INTO pomodoro_state (id) VALUES (1)`,
		`CREATE TABLE IF NOT EXISTS pomodoro_totals (
			id                 INTEGER PRIMARY KEY CHECK (id = 1),
			focus_seconds      INTEGER NOT NULL DEFAULT 0,
			break_seconds      INTEGER NOT NULL DEFAULT 0,
			sessions_completed INTEGER NOT NULL DEFAULT 0,
			cycles_completed   INTEGER NOT NULL DEFAULT 0
		)`,
		`INSERT OR IGNORE INTO pomodoro_totals (id) VALUES (1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
