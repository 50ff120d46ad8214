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

// FolderStore implements repository.Folders. Deletes cascade to child
// folders and requests via the collections/folders FK chain.
type FolderStore struct{ pool *pgxpool.Pool }

var _ repository.Folders = (*FolderStore)(nil)

func (s *FolderStore) ListByCollection(ctx context.Context, collectionID string) ([]collection.Folder, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM folders WHERE collection_id = $1`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list folders: %w", err)
	}
	defer rows.Close()
	return scanFolders(rows)
}

func (s *FolderStore) FindRootFolders(ctx context.Context, collectionID string) ([]collection.Folder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT data FROM folders
		WHERE collection_id = $1 AND (parent_id IS NULL OR parent_id = '')
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: find root folders: %w", err)
	}
	defer rows.Close()
	return scanFolders(rows)
}

func scanFolders(rows pgx.Rows) ([]collection.Folder, error) {
	var out []collection.Folder
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scanning folder: %w", err)
		}
		var f collection.Folder
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("postgres: decoding folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *FolderStore) Save(ctx context.Context, f *collection.Folder) error {
	if f.ID == "" {
		return fmt.Errorf("folder must have an ID")
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("postgres: encoding folder: %w", err)
	}
	var parentID any
	if f.ParentID != "" {
		parentID = f.ParentID
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO folders (id, collection_id, parent_id, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			collection_id = EXCLUDED.collection_id, parent_id = EXCLUDED.parent_id, data = EXCLUDED.data
	`, f.ID, f.CollectionID, parentID, data, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: saving folder: %w", err)
	}
	return nil
}

func (s *FolderStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: deleting folder: %w", err)
	}
	return nil
}
