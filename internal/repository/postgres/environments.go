package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/repository"
)

// EnvironmentStore implements repository.Environments. The partial unique
// index idx_environments_team_active (team_id WHERE is_active) enforces
// "at most one active Environment per team" even against concurrent writers
// from other instances; Activate additionally wraps its two statements in
// a transaction so a crash between them never leaves two rows active.
type EnvironmentStore struct{ pool *pgxpool.Pool }

var _ repository.Environments = (*EnvironmentStore)(nil)

func (s *EnvironmentStore) ListByTeam(ctx context.Context, teamID string) ([]environment.Environment, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM environments WHERE team_id = $1 ORDER BY (data->>'Name')`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list environments: %w", err)
	}
	defer rows.Close()

	var out []environment.Environment
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scanning environment: %w", err)
		}
		var e environment.Environment
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("postgres: decoding environment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *EnvironmentStore) FindActive(ctx context.Context, teamID string) (*environment.Environment, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM environments WHERE team_id = $1 AND is_active LIMIT 1
	`, teamID).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("no active environment for team %q", teamID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find active environment: %w", err)
	}
	var e environment.Environment
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("postgres: decoding environment: %w", err)
	}
	return &e, nil
}

func (s *EnvironmentStore) Save(ctx context.Context, e *environment.Environment) error {
	if e.ID == "" {
		return fmt.Errorf("environment must have an ID")
	}
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("postgres: encoding environment: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO environments (id, team_id, is_active, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id, is_active = EXCLUDED.is_active,
			data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, e.ID, e.TeamID, e.IsActive, data, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: saving environment: %w", err)
	}
	return nil
}

func (s *EnvironmentStore) Activate(ctx context.Context, teamID, envID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: activate: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE environments SET is_active = FALSE, data = jsonb_set(data, '{IsActive}', 'false')
		WHERE team_id = $1 AND is_active
	`, teamID); err != nil {
		return fmt.Errorf("postgres: activate: deactivating: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE environments SET is_active = TRUE, data = jsonb_set(data, '{IsActive}', 'true')
		WHERE id = $1 AND team_id = $2
	`, envID, teamID)
	if err != nil {
		return fmt.Errorf("postgres: activate: activating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("environment %q not found for team %q", envID, teamID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: activate: committing: %w", err)
	}
	return nil
}
