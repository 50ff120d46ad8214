package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/courier/internal/core/run"
	"github.com/sadopc/courier/internal/repository"
)

// RunStore implements repository.Runs against the runs/run_iterations
// tables.
type RunStore struct{ conn *sql.DB }

var _ repository.Runs = (*RunStore)(nil)

func (s *RunStore) Create(ctx context.Context, r *run.Result) error {
	if r.ID == "" {
		return fmt.Errorf("sqlite: run must have an ID")
	}
	r.CreatedAt = time.Now()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (
			id, team_id, actor_id, collection_id, environment_id, status,
			iteration_count, delay_ms, data_filename,
			total_requests, passed_requests, failed_requests,
			total_assertions, passed_assertions, failed_assertions,
			started_at, completed_at, created_at, orphaned
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TeamID, r.ActorID, r.CollectionID, nullable(r.EnvironmentID), string(r.Status),
		r.IterationCount, r.DelayMs, nullable(r.DataFilename),
		r.TotalRequests, r.PassedRequests, r.FailedRequests,
		r.TotalAssertions, r.PassedAssertions, r.FailedAssertions,
		nullableTime(r.StartedAt), nullableTime(r.CompletedAt), r.CreatedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(r.Orphaned),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting run: %w", err)
	}
	return nil
}

func (s *RunStore) Update(ctx context.Context, r *run.Result) error {
	result, err := s.conn.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, total_requests = ?, passed_requests = ?, failed_requests = ?,
			total_assertions = ?, passed_assertions = ?, failed_assertions = ?,
			started_at = ?, completed_at = ?, orphaned = ?
		WHERE id = ?`,
		string(r.Status), r.TotalRequests, r.PassedRequests, r.FailedRequests,
		r.TotalAssertions, r.PassedAssertions, r.FailedAssertions,
		nullableTime(r.StartedAt), nullableTime(r.CompletedAt), boolToInt(r.Orphaned), r.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: run %q not found", r.ID)
	}
	return nil
}

func (s *RunStore) AppendIteration(ctx context.Context, runID string, it run.Iteration) error {
	if it.ID == "" {
		return fmt.Errorf("sqlite: iteration must have an ID")
	}
	it.RunID = runID
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO run_iterations (
			id, run_id, iteration_number, request_name, method, url,
			status_code, response_size_bytes, response_time_ms, passed,
			assertion_results, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.RunID, it.IterationNumber, it.RequestName, it.Method, it.URL,
		it.StatusCode, it.ResponseSizeBytes, it.ResponseTimeMs, boolToInt(it.Passed),
		it.AssertionResults, it.ErrorMessage, it.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting run iteration: %w", err)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, id string) (*run.Result, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, team_id, actor_id, collection_id, environment_id, status,
		       iteration_count, delay_ms, data_filename,
		       total_requests, passed_requests, failed_requests,
		       total_assertions, passed_assertions, failed_assertions,
		       started_at, completed_at, created_at, orphaned
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: run %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scanning run: %w", err)
	}
	return r, nil
}

func (s *RunStore) ListByTeam(ctx context.Context, teamID string) ([]run.Result, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, team_id, actor_id, collection_id, environment_id, status,
		       iteration_count, delay_ms, data_filename,
		       total_requests, passed_requests, failed_requests,
		       total_assertions, passed_assertions, failed_assertions,
		       started_at, completed_at, created_at, orphaned
		FROM runs WHERE team_id = ? ORDER BY created_at DESC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing runs: %w", err)
	}
	defer rows.Close()

	var out []run.Result
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ListRunning returns every RUNNING run across all teams whose
// started_at predates olderThan, for the startup orphan scan (spec.md
// §9). A run that never reached RUNNING (still PENDING) isn't in scope
// here — it never dispatched anything, so there's nothing to reap.
func (s *RunStore) ListRunning(ctx context.Context, olderThan time.Time) ([]run.Result, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, team_id, actor_id, collection_id, environment_id, status,
		       iteration_count, delay_ms, data_filename,
		       total_requests, passed_requests, failed_requests,
		       total_assertions, passed_assertions, failed_assertions,
		       started_at, completed_at, created_at, orphaned
		FROM runs WHERE status = ? AND started_at IS NOT NULL AND started_at < ?`,
		string(run.Running), olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing running runs: %w", err)
	}
	defer rows.Close()

	var out []run.Result
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *RunStore) ListIterations(ctx context.Context, runID string, limit, offset int) ([]run.Iteration, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, run_id, iteration_number, request_name, method, url,
		       status_code, response_size_bytes, response_time_ms, passed,
		       assertion_results, error_message, created_at
		FROM run_iterations WHERE run_id = ? ORDER BY created_at ASC LIMIT ? OFFSET ?`,
		runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing run iterations: %w", err)
	}
	defer rows.Close()

	var out []run.Iteration
	for rows.Next() {
		var it run.Iteration
		var passed int
		var createdAt string
		err := rows.Scan(
			&it.ID, &it.RunID, &it.IterationNumber, &it.RequestName, &it.Method, &it.URL,
			&it.StatusCode, &it.ResponseSizeBytes, &it.ResponseTimeMs, &passed,
			&it.AssertionResults, &it.ErrorMessage, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning run iteration: %w", err)
		}
		it.Passed = passed != 0
		it.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, it)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*run.Result, error) {
	var r run.Result
	var environmentID, dataFilename sql.NullString
	var startedAt, completedAt sql.NullString
	var createdAt string
	var orphaned int
	err := row.Scan(
		&r.ID, &r.TeamID, &r.ActorID, &r.CollectionID, &environmentID, &r.Status,
		&r.IterationCount, &r.DelayMs, &dataFilename,
		&r.TotalRequests, &r.PassedRequests, &r.FailedRequests,
		&r.TotalAssertions, &r.PassedAssertions, &r.FailedAssertions,
		&startedAt, &completedAt, &createdAt, &orphaned,
	)
	if err != nil {
		return nil, err
	}
	r.EnvironmentID = environmentID.String
	r.DataFilename = dataFilename.String
	r.Orphaned = orphaned != 0
	if startedAt.Valid {
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt.String)
	}
	if completedAt.Valid {
		r.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt.String)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &r, nil
}

func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
