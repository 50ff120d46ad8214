package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/repository"
)

// CachedEnvironments decorates a repository.Environments with a Cache in
// front of ListByTeam and FindActive, the two reads the Collection
// Runner and /proxy/send issue to build a Variable Store (spec.md §4.A).
// Save and Activate invalidate the team's cached entries.
type CachedEnvironments struct {
	repository.Environments
	cache Cache
	ttl   time.Duration
}

func NewCachedEnvironments(underlying repository.Environments, c Cache) *CachedEnvironments {
	return &CachedEnvironments{Environments: underlying, cache: c, ttl: DefaultVariableTTL}
}

func (c *CachedEnvironments) listKey(teamID string) string {
	return "envs:list:" + teamID
}

func (c *CachedEnvironments) activeKey(teamID string) string {
	return "envs:active:" + teamID
}

func (c *CachedEnvironments) ListByTeam(ctx context.Context, teamID string) ([]environment.Environment, error) {
	key := c.listKey(teamID)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var out []environment.Environment
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}

	out, err := c.Environments.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		_ = c.cache.Set(ctx, key, raw, c.ttl)
	}
	return out, nil
}

func (c *CachedEnvironments) FindActive(ctx context.Context, teamID string) (*environment.Environment, error) {
	key := c.activeKey(teamID)
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var out environment.Environment
		if json.Unmarshal(raw, &out) == nil {
			return &out, nil
		}
	}

	out, err := c.Environments.FindActive(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		_ = c.cache.Set(ctx, key, raw, c.ttl)
	}
	return out, nil
}

func (c *CachedEnvironments) Save(ctx context.Context, e *environment.Environment) error {
	if err := c.Environments.Save(ctx, e); err != nil {
		return err
	}
	_ = c.cache.Delete(ctx, c.listKey(e.TeamID))
	_ = c.cache.Delete(ctx, c.activeKey(e.TeamID))
	return nil
}

func (c *CachedEnvironments) Activate(ctx context.Context, teamID, envID string) error {
	if err := c.Environments.Activate(ctx, teamID, envID); err != nil {
		return err
	}
	_ = c.cache.Delete(ctx, c.listKey(teamID))
	_ = c.cache.Delete(ctx, c.activeKey(teamID))
	return nil
}
