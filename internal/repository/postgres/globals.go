package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/repository"
)

// GlobalVariableStore implements repository.GlobalVariables.
type GlobalVariableStore struct{ pool *pgxpool.Pool }

var _ repository.GlobalVariables = (*GlobalVariableStore)(nil)

func (s *GlobalVariableStore) ListByTeam(ctx context.Context, teamID string) ([]environment.GlobalVariable, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM global_variables WHERE team_id = $1 ORDER BY key`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list global variables: %w", err)
	}
	defer rows.Close()

	var out []environment.GlobalVariable
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scanning global variable: %w", err)
		}
		var g environment.GlobalVariable
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("postgres: decoding global variable: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *GlobalVariableStore) Upsert(ctx context.Context, teamID, key, value string, isSecret, isEnabled bool) error {
	g := environment.GlobalVariable{TeamID: teamID, Key: key, Value: value, IsSecret: isSecret, IsEnabled: isEnabled}
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("postgres: encoding global variable: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO global_variables (team_id, key, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, key) DO UPDATE SET data = EXCLUDED.data
	`, teamID, key, data)
	if err != nil {
		return fmt.Errorf("postgres: upserting global variable: %w", err)
	}
	return nil
}

func (s *GlobalVariableStore) Delete(ctx context.Context, teamID, key string) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM global_variables WHERE team_id = $1 AND key = $2
	`, teamID, key); err != nil {
		return fmt.Errorf("postgres: deleting global variable: %w", err)
	}
	return nil
}
