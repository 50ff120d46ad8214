// Package sqlite implements repository.History and repository.Runs
// against a single file, for single-instance deployments that want
// durable history/run persistence without standing up Postgres.
// Collections/Folders/Requests/Environments/GlobalVariables are served
// by repository/postgres instead, since those are shared, low-volume
// configuration records best kept in a multi-instance-safe store.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps one sqlite connection shared by HistoryStore and RunStore,
// mirroring how a single connection backs every interface in
// repository/postgres and repository/memory.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if absent) a database at path and creates every
// table this package owns.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", path, err)
	}
	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) createTables() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			history_id       TEXT,
			team_id          TEXT NOT NULL,
			actor_id         TEXT NOT NULL,
			collection_id    TEXT,
			request_id       TEXT,
			environment_id   TEXT,
			method           TEXT NOT NULL,
			url              TEXT NOT NULL,
			request_headers  TEXT,
			request_body     TEXT,
			status_code      INTEGER,
			response_headers TEXT,
			response_body    TEXT,
			content_type     TEXT,
			size_bytes       INTEGER,
			duration_ms      INTEGER,
			truncated        INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_history_team_created ON history(team_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_history_request ON history(request_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_history_history_id ON history(history_id);

		CREATE TABLE IF NOT EXISTS runs (
			id                 TEXT PRIMARY KEY,
			team_id            TEXT NOT NULL,
			actor_id           TEXT NOT NULL,
			collection_id      TEXT NOT NULL,
			environment_id     TEXT,
			status             TEXT NOT NULL,
			iteration_count    INTEGER NOT NULL,
			delay_ms           INTEGER NOT NULL,
			data_filename      TEXT,
			total_requests     INTEGER NOT NULL DEFAULT 0,
			passed_requests    INTEGER NOT NULL DEFAULT 0,
			failed_requests    INTEGER NOT NULL DEFAULT 0,
			total_assertions   INTEGER NOT NULL DEFAULT 0,
			passed_assertions  INTEGER NOT NULL DEFAULT 0,
			failed_assertions  INTEGER NOT NULL DEFAULT 0,
			started_at         TEXT,
			completed_at       TEXT,
			created_at         TEXT NOT NULL,
			orphaned           INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_team_created ON runs(team_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_status_started ON runs(status, started_at);

		CREATE TABLE IF NOT EXISTS run_iterations (
			id                  TEXT PRIMARY KEY,
			run_id              TEXT NOT NULL,
			iteration_number    INTEGER NOT NULL,
			request_name        TEXT NOT NULL,
			method              TEXT NOT NULL,
			url                 TEXT NOT NULL,
			status_code         INTEGER,
			response_size_bytes INTEGER,
			response_time_ms    INTEGER,
			passed              INTEGER NOT NULL DEFAULT 0,
			assertion_results   TEXT,
			error_message       TEXT,
			created_at          TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_run_iterations_run ON run_iterations(run_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: creating tables: %w", err)
	}
	return nil
}

// History returns a repository.History backed by db.
func (db *DB) History() *HistoryStore { return &HistoryStore{conn: db.conn} }

// Runs returns a repository.Runs backed by db.
func (db *DB) Runs() *RunStore { return &RunStore{conn: db.conn} }

func (db *DB) Close() error {
	return db.conn.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
