package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/repository"
)

// DefaultVariableTTL bounds how long a team's globals or an
// environment's variables stay cached before the next read falls
// through to the repository, even absent an invalidating write.
const DefaultVariableTTL = 30 * time.Second

// CachedGlobalVariables decorates a repository.GlobalVariables with a
// Cache in front of ListByTeam — the read the Variable Store issues once
// per proxy execution or Collection Runner run (spec.md §4.A). Writes
// invalidate the team's cached entry rather than updating it in place,
// so the next read repopulates from the source of truth.
type CachedGlobalVariables struct {
	repository.GlobalVariables
	cache Cache
	ttl   time.Duration
}

func NewCachedGlobalVariables(underlying repository.GlobalVariables, c Cache) *CachedGlobalVariables {
	return &CachedGlobalVariables{GlobalVariables: underlying, cache: c, ttl: DefaultVariableTTL}
}

func (c *CachedGlobalVariables) globalsKey(teamID string) string {
	return "globals:" + teamID
}

func (c *CachedGlobalVariables) ListByTeam(ctx context.Context, teamID string) ([]environment.GlobalVariable, error) {
	key := c.globalsKey(teamID)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var out []environment.GlobalVariable
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}

	out, err := c.GlobalVariables.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		_ = c.cache.Set(ctx, key, raw, c.ttl)
	}
	return out, nil
}

func (c *CachedGlobalVariables) Upsert(ctx context.Context, teamID, key, value string, isSecret, isEnabled bool) error {
	if err := c.GlobalVariables.Upsert(ctx, teamID, key, value, isSecret, isEnabled); err != nil {
		return err
	}
	_ = c.cache.Delete(ctx, c.globalsKey(teamID))
	return nil
}

func (c *CachedGlobalVariables) Delete(ctx context.Context, teamID, key string) error {
	if err := c.GlobalVariables.Delete(ctx, teamID, key); err != nil {
		return err
	}
	_ = c.cache.Delete(ctx, c.globalsKey(teamID))
	return nil
}
