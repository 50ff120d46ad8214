package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/courier/internal/core/run"
)

func TestRunCreateUpdateAndGet(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := db.Runs()
	ctx := context.Background()

	r := &run.Result{
		ID: uuid.NewString(), TeamID: "team-1", ActorID: "user-1",
		CollectionID: "col-1", Status: run.Pending, IterationCount: 3,
	}
	if err := store.Create(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != run.Pending || got.IterationCount != 3 {
		t.Fatalf("got %+v", got)
	}

	r.Status = run.Completed
	r.TotalRequests = 3
	r.PassedRequests = 3
	r.CompletedAt = time.Now()
	if err := store.Update(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err = store.Get(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != run.Completed || got.TotalRequests != 3 || got.CompletedAt.IsZero() {
		t.Fatalf("got %+v", got)
	}
	if !got.Status.IsTerminal() {
		t.Fatal("COMPLETED must be a terminal status")
	}
}

func TestRunUpdateUnknownIDFails(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := db.Runs()

	err = store.Update(context.Background(), &run.Result{ID: "nonexistent", Status: run.Failed})
	if err == nil {
		t.Fatal("expected an error updating an unknown run ID")
	}
}

func TestRunListByTeamAndListIterations(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := db.Runs()
	ctx := context.Background()

	r1 := &run.Result{ID: uuid.NewString(), TeamID: "team-1", ActorID: "u", CollectionID: "c", Status: run.Running, IterationCount: 1}
	r2 := &run.Result{ID: uuid.NewString(), TeamID: "team-2", ActorID: "u", CollectionID: "c", Status: run.Running, IterationCount: 1}
	if err := store.Create(ctx, r1); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, r2); err != nil {
		t.Fatal(err)
	}

	runs, err := store.ListByTeam(ctx, "team-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != r1.ID {
		t.Fatalf("expected only team-1's run, got %+v", runs)
	}

	for i := 1; i <= 2; i++ {
		it := run.Iteration{
			ID: uuid.NewString(), IterationNumber: i, RequestName: "Ping",
			Method: "GET", URL: "http://example.test", StatusCode: 200, Passed: true,
		}
		if err := store.AppendIteration(ctx, r1.ID, it); err != nil {
			t.Fatal(err)
		}
	}

	its, err := store.ListIterations(ctx, r1.ID, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(its) != 2 || its[0].IterationNumber != 1 {
		t.Fatalf("got %+v", its)
	}
}
