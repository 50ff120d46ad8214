package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
)

// These tests exercise a real Postgres instance and are skipped unless
// COURIER_TEST_POSTGRES_DSN is set, the same way the rest of the pack
// gates subprocess/external-dependency tests behind testing.Short().
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("COURIER_TEST_POSTGRES_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("set COURIER_TEST_POSTGRES_DSN to run postgres repository tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestCollectionSaveGetListDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := &collection.Collection{ID: uuid.NewString(), TeamID: "team-pg", Name: "Widgets API"}
	if err := s.Collections.Save(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := s.Collections.Get(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Widgets API" || got.CreatedAt.IsZero() {
		t.Fatalf("got %+v", got)
	}

	list, err := s.Collections.ListByTeam(ctx, "team-pg")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, item := range list {
		if item.ID == c.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected saved collection in team listing")
	}

	if err := s.Collections.Delete(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Collections.Get(ctx, c.ID); err == nil {
		t.Fatal("expected error getting a deleted collection")
	}
}

func TestFolderCascadeDeleteOnCollectionRemoval(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := &collection.Collection{ID: uuid.NewString(), TeamID: "team-pg", Name: "Cascade Test"}
	if err := s.Collections.Save(ctx, c); err != nil {
		t.Fatal(err)
	}
	f := &collection.Folder{ID: uuid.NewString(), CollectionID: c.ID, Name: "root"}
	if err := s.Folders.Save(ctx, f); err != nil {
		t.Fatal(err)
	}
	r := collection.NewRequest(f.ID, "Ping", collection.GET, "https://example.test")
	if err := s.Requests.Save(ctx, r); err != nil {
		t.Fatal(err)
	}

	if err := s.Collections.Delete(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	folders, err := s.Folders.ListByCollection(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 0 {
		t.Fatalf("expected folders to cascade-delete, got %d", len(folders))
	}
	if _, err := s.Requests.Get(ctx, r.ID); err == nil {
		t.Fatal("expected request to cascade-delete with its folder")
	}
}

func TestEnvironmentActivateIsExclusivePerTeam(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	team := "team-" + uuid.NewString()

	e1 := &environment.Environment{ID: uuid.NewString(), TeamID: team, Name: "staging"}
	e2 := &environment.Environment{ID: uuid.NewString(), TeamID: team, Name: "production"}
	if err := s.Environments.Save(ctx, e1); err != nil {
		t.Fatal(err)
	}
	if err := s.Environments.Save(ctx, e2); err != nil {
		t.Fatal(err)
	}

	if err := s.Environments.Activate(ctx, team, e1.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Environments.Activate(ctx, team, e2.ID); err != nil {
		t.Fatal(err)
	}

	active, err := s.Environments.FindActive(ctx, team)
	if err != nil {
		t.Fatal(err)
	}
	if active.ID != e2.ID {
		t.Fatalf("expected e2 active, got %s", active.ID)
	}

	list, err := s.Environments.ListByTeam(ctx, team)
	if err != nil {
		t.Fatal(err)
	}
	activeCount := 0
	for _, e := range list {
		if e.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly 1 active environment, got %d", activeCount)
	}
}

func TestGlobalVariableUpsertAndDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	team := "team-" + uuid.NewString()

	if err := s.GlobalVariables.Upsert(ctx, team, "API_KEY", "secret", true, true); err != nil {
		t.Fatal(err)
	}
	if err := s.GlobalVariables.Upsert(ctx, team, "API_KEY", "rotated", true, true); err != nil {
		t.Fatal(err)
	}

	vars, err := s.GlobalVariables.ListByTeam(ctx, team)
	if err != nil {
		t.Fatal(err)
	}
	if len(vars) != 1 || vars[0].Value != "rotated" {
		t.Fatalf("expected one rotated variable, got %+v", vars)
	}

	if err := s.GlobalVariables.Delete(ctx, team, "API_KEY"); err != nil {
		t.Fatal(err)
	}
	vars, err = s.GlobalVariables.ListByTeam(ctx, team)
	if err != nil {
		t.Fatal(err)
	}
	if len(vars) != 0 {
		t.Fatalf("expected no variables after delete, got %+v", vars)
	}
}
