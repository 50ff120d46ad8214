// Package repository declares the narrow persistence interfaces the
// core consumes (spec.md §6). The core never imports a concrete
// storage driver directly — only these interfaces — so the Proxy
// Executor, Collection Runner, and server handlers are storage-agnostic.
package repository

import (
	"context"
	"time"

	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/core/history"
	"github.com/sadopc/courier/internal/core/run"
)

// Collections persists Collection records.
type Collections interface {
	Get(ctx context.Context, id string) (*collection.Collection, error)
	ListByTeam(ctx context.Context, teamID string) ([]collection.Collection, error)
	Save(ctx context.Context, c *collection.Collection) error
	Delete(ctx context.Context, id string) error
}

// Folders persists Folder records, including cascading delete.
type Folders interface {
	ListByCollection(ctx context.Context, collectionID string) ([]collection.Folder, error)
	FindRootFolders(ctx context.Context, collectionID string) ([]collection.Folder, error)
	Save(ctx context.Context, f *collection.Folder) error
	Delete(ctx context.Context, id string) error
}

// Requests persists Request records.
type Requests interface {
	ListByFolder(ctx context.Context, folderID string, orderBySort bool) ([]collection.Request, error)
	Get(ctx context.Context, id string) (*collection.Request, error)
	Save(ctx context.Context, r *collection.Request) error
	Delete(ctx context.Context, id string) error
}

// Environments persists Environment records and enforces "at most one
// active Environment per team" via Activate.
type Environments interface {
	ListByTeam(ctx context.Context, teamID string) ([]environment.Environment, error)
	FindActive(ctx context.Context, teamID string) (*environment.Environment, error)
	Save(ctx context.Context, e *environment.Environment) error
	// Activate deactivates the team's previously active Environment (if
	// any) and activates envID atomically, per spec.md invariant 3.
	Activate(ctx context.Context, teamID, envID string) error
}

// GlobalVariables persists team-wide variables, unique per (teamID, key).
type GlobalVariables interface {
	ListByTeam(ctx context.Context, teamID string) ([]environment.GlobalVariable, error)
	Upsert(ctx context.Context, teamID, key, value string, isSecret, isEnabled bool) error
	Delete(ctx context.Context, teamID, key string) error
}

// HistoryFilter narrows a History.ListByTeam query.
type HistoryFilter struct {
	Method string
	URLLike string
}

// History is the append-only, write-mostly request-history store.
type History interface {
	Append(ctx context.Context, e history.Entry) (int64, error)
	ListByTeam(ctx context.Context, teamID string, filter HistoryFilter, limit, offset int) ([]history.Entry, error)
	PruneOlderThan(ctx context.Context, teamID string, cutoff time.Time) error
}

// Runs persists RunResult/RunIteration records.
type Runs interface {
	Create(ctx context.Context, r *run.Result) error
	Update(ctx context.Context, r *run.Result) error
	AppendIteration(ctx context.Context, runID string, it run.Iteration) error
	Get(ctx context.Context, id string) (*run.Result, error)
	ListByTeam(ctx context.Context, teamID string) ([]run.Result, error)
	ListIterations(ctx context.Context, runID string, limit, offset int) ([]run.Iteration, error)

	// ListRunning returns every run still in RUNNING across all teams
	// whose StartedAt is older than olderThan, for the startup orphan
	// scan (spec.md §9). Unlike every other method here, this one is
	// intentionally not team-scoped: it runs once at process start,
	// before any caller identity is in play.
	ListRunning(ctx context.Context, olderThan time.Time) ([]run.Result, error)
}
