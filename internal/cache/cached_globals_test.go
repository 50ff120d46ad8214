package cache

import (
	"context"
	"testing"

	"github.com/sadopc/courier/internal/core/environment"
)

type countingGlobals struct {
	calls int
	vars  []environment.GlobalVariable
}

func (c *countingGlobals) ListByTeam(ctx context.Context, teamID string) ([]environment.GlobalVariable, error) {
	c.calls++
	return c.vars, nil
}

func (c *countingGlobals) Upsert(ctx context.Context, teamID, key, value string, isSecret, isEnabled bool) error {
	return nil
}

func (c *countingGlobals) Delete(ctx context.Context, teamID, key string) error {
	return nil
}

func TestCachedGlobalVariablesServesRepeatReadsFromCache(t *testing.T) {
	underlying := &countingGlobals{vars: []environment.GlobalVariable{{TeamID: "team-1", Key: "k", Value: "v"}}}
	cached := NewCachedGlobalVariables(underlying, NewInMemoryCache())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := cached.ListByTeam(ctx, "team-1")
		if err != nil {
			t.Fatalf("ListByTeam: %v", err)
		}
		if len(out) != 1 || out[0].Key != "k" {
			t.Fatalf("got %+v", out)
		}
	}
	if underlying.calls != 1 {
		t.Fatalf("underlying.calls = %d, want 1 (subsequent reads should hit the cache)", underlying.calls)
	}
}

func TestCachedGlobalVariablesUpsertInvalidatesCache(t *testing.T) {
	underlying := &countingGlobals{vars: []environment.GlobalVariable{{TeamID: "team-1", Key: "k", Value: "v1"}}}
	cached := NewCachedGlobalVariables(underlying, NewInMemoryCache())
	ctx := context.Background()

	if _, err := cached.ListByTeam(ctx, "team-1"); err != nil {
		t.Fatalf("ListByTeam: %v", err)
	}
	underlying.vars = []environment.GlobalVariable{{TeamID: "team-1", Key: "k", Value: "v2"}}

	if err := cached.Upsert(ctx, "team-1", "k", "v2", false, true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	out, err := cached.ListByTeam(ctx, "team-1")
	if err != nil {
		t.Fatalf("ListByTeam: %v", err)
	}
	if len(out) != 1 || out[0].Value != "v2" {
		t.Fatalf("expected the invalidated cache to re-fetch v2, got %+v", out)
	}
	if underlying.calls != 2 {
		t.Fatalf("underlying.calls = %d, want 2 (one before Upsert, one after invalidation)", underlying.calls)
	}
}
