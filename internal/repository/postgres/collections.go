package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/repository"
)

// CollectionStore implements repository.Collections.
type CollectionStore struct{ pool *pgxpool.Pool }

var _ repository.Collections = (*CollectionStore)(nil)

func (s *CollectionStore) Get(ctx context.Context, id string) (*collection.Collection, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM collections WHERE id = $1`, id).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("collection %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get collection: %w", err)
	}
	var c collection.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("postgres: decoding collection: %w", err)
	}
	return &c, nil
}

func (s *CollectionStore) ListByTeam(ctx context.Context, teamID string) ([]collection.Collection, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM collections WHERE team_id = $1 ORDER BY (data->>'Name')`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list collections: %w", err)
	}
	defer rows.Close()

	var out []collection.Collection
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scanning collection: %w", err)
		}
		var c collection.Collection
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("postgres: decoding collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CollectionStore) Save(ctx context.Context, c *collection.Collection) error {
	if c.ID == "" {
		return fmt.Errorf("collection must have an ID")
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("postgres: encoding collection: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO collections (id, team_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, c.ID, c.TeamID, data, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: saving collection: %w", err)
	}
	return nil
}

func (s *CollectionStore) Delete(ctx context.Context, id string) error {
	// Folders and Requests cascade via FK ON DELETE CASCADE.
	if _, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: deleting collection: %w", err)
	}
	return nil
}
