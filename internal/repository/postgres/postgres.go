// Package postgres implements repository.Collections, repository.Folders,
// repository.Requests, repository.Environments, and
// repository.GlobalVariables against a shared Postgres instance — the
// backing store for multi-instance deployments, where repository/memory
// (single process) and repository/sqlite (history/runs, single file)
// aren't shared across instances.
//
// Each record is stored as one indexed relational key plus a JSONB blob
// of the full Go struct, following oriys-nova's PostgresStore pattern
// (functions/function_versions/function_aliases) rather than a fully
// normalized schema — the core never issues ad-hoc SQL against these
// tables, so there's nothing to gain from exploding every field into its
// own column, and it keeps each Save a single upsert regardless of how
// collection.Request grows.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles one accessor per repository interface, all sharing the
// same connection pool.
type Store struct {
	pool *pgxpool.Pool

	Collections     *CollectionStore
	Folders         *FolderStore
	Requests        *RequestStore
	Environments    *EnvironmentStore
	GlobalVariables *GlobalVariableStore
}

// Open connects to dsn, verifies connectivity, and ensures every table
// this package owns exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Store{pool: pool}
	s.Collections = &CollectionStore{pool: pool}
	s.Folders = &FolderStore{pool: pool}
	s.Requests = &RequestStore{pool: pool}
	s.Environments = &EnvironmentStore{pool: pool}
	s.GlobalVariables = &GlobalVariableStore{pool: pool}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collections_team ON collections(team_id)`,

		`CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
			parent_id TEXT REFERENCES folders(id) ON DELETE CASCADE,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_collection ON folders(collection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id)`,

		`CREATE TABLE IF NOT EXISTS requests (
			id TEXT PRIMARY KEY,
			folder_id TEXT NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
			sort_order INTEGER NOT NULL DEFAULT 0,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requests_folder ON requests(folder_id, sort_order)`,

		`CREATE TABLE IF NOT EXISTS environments (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			data JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_environments_team ON environments(team_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_environments_team_active
			ON environments(team_id) WHERE is_active`,

		`CREATE TABLE IF NOT EXISTS global_variables (
			team_id TEXT NOT NULL,
			key TEXT NOT NULL,
			data JSONB NOT NULL,
			PRIMARY KEY (team_id, key)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensuring schema: %w", err)
		}
	}
	return nil
}
