package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/courier/internal/core/history"
	"github.com/sadopc/courier/internal/repository"
)

// HistoryStore implements repository.History against the history table.
type HistoryStore struct{ conn *sql.DB }

var _ repository.History = (*HistoryStore)(nil)

// Append inserts e, deduplicating on e.HistoryID when the caller
// supplied one: a retried Append with the same HistoryID is a no-op
// against the row the first attempt wrote (spec.md §4.F step 11, §8's
// round-trip property) and returns that row's id rather than erroring
// or inserting a second copy. An empty HistoryID never matches an
// existing row (idx_history_history_id ignores NULLs), so callers that
// don't supply one always get a plain insert.
func (s *HistoryStore) Append(ctx context.Context, e history.Entry) (int64, error) {
	result, err := s.conn.ExecContext(ctx, `
		INSERT INTO history (
			history_id, team_id, actor_id, collection_id, request_id, environment_id,
			method, url, request_headers, request_body,
			status_code, response_headers, response_body, content_type,
			size_bytes, duration_ms, truncated, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(history_id) DO NOTHING`,
		nullable(e.HistoryID), e.TeamID, e.ActorID, nullable(e.CollectionID), nullable(e.RequestID), nullable(e.EnvironmentID),
		e.Method, e.URL, e.RequestHeaders, e.RequestBody,
		e.StatusCode, e.ResponseHeaders, e.ResponseBody, e.ContentType,
		e.SizeBytes, e.DurationMs, boolToInt(e.Truncated),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: inserting history: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 && e.HistoryID != "" {
		var id int64
		err := s.conn.QueryRowContext(ctx, `SELECT id FROM history WHERE history_id = ?`, e.HistoryID).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("sqlite: fetching deduplicated history row: %w", err)
		}
		return id, nil
	}
	return result.LastInsertId()
}

func (s *HistoryStore) ListByTeam(ctx context.Context, teamID string, filter repository.HistoryFilter, limit, offset int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, history_id, team_id, actor_id, collection_id, request_id, environment_id,
		       method, url, request_headers, request_body,
		       status_code, response_headers, response_body, content_type,
		       size_bytes, duration_ms, truncated, created_at
		FROM history
		WHERE team_id = ?`)
	args := []any{teamID}
	if filter.Method != "" {
		query.WriteString(" AND UPPER(method) = UPPER(?)")
		args = append(args, filter.Method)
	}
	if filter.URLLike != "" {
		query.WriteString(" AND url LIKE ?")
		args = append(args, "%"+filter.URLLike+"%")
	}
	query.WriteString(" ORDER BY created_at DESC LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := s.conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing history: %w", err)
	}
	defer rows.Close()
	return scanHistoryEntries(rows)
}

func (s *HistoryStore) PruneOlderThan(ctx context.Context, teamID string, cutoff time.Time) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM history WHERE team_id = ? AND created_at < ?`,
		teamID, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: pruning history: %w", err)
	}
	return nil
}

func scanHistoryEntries(rows *sql.Rows) ([]history.Entry, error) {
	var entries []history.Entry
	for rows.Next() {
		var e history.Entry
		var historyID, collectionID, requestID, environmentID sql.NullString
		var truncated int
		var createdAt string
		err := rows.Scan(
			&e.ID, &historyID, &e.TeamID, &e.ActorID, &collectionID, &requestID, &environmentID,
			&e.Method, &e.URL, &e.RequestHeaders, &e.RequestBody,
			&e.StatusCode, &e.ResponseHeaders, &e.ResponseBody, &e.ContentType,
			&e.SizeBytes, &e.DurationMs, &truncated, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning history row: %w", err)
		}
		e.HistoryID = historyID.String
		e.CollectionID, e.RequestID, e.EnvironmentID = collectionID.String, requestID.String, environmentID.String
		e.Truncated = truncated != 0
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
