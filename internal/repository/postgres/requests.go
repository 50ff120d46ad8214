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

// RequestStore implements repository.Requests.
type RequestStore struct{ pool *pgxpool.Pool }

var _ repository.Requests = (*RequestStore)(nil)

func (s *RequestStore) ListByFolder(ctx context.Context, folderID string, orderBySort bool) ([]collection.Request, error) {
	query := `SELECT data FROM requests WHERE folder_id = $1`
	if orderBySort {
		query += ` ORDER BY sort_order`
	}
	rows, err := s.pool.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list requests: %w", err)
	}
	defer rows.Close()

	var out []collection.Request
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scanning request: %w", err)
		}
		var r collection.Request
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("postgres: decoding request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RequestStore) Get(ctx context.Context, id string) (*collection.Request, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM requests WHERE id = $1`, id).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("request %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get request: %w", err)
	}
	var r collection.Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("postgres: decoding request: %w", err)
	}
	return &r, nil
}

func (s *RequestStore) Save(ctx context.Context, r *collection.Request) error {
	if r.ID == "" {
		return fmt.Errorf("request must have an ID")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("postgres: encoding request: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO requests (id, folder_id, sort_order, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			folder_id = EXCLUDED.folder_id, sort_order = EXCLUDED.sort_order, data = EXCLUDED.data
	`, r.ID, r.FolderID, r.SortOrder, data, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: saving request: %w", err)
	}
	return nil
}

func (s *RequestStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: deleting request: %w", err)
	}
	return nil
}
