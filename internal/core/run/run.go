// Package run defines the RunResult/RunIteration data model for a
// Collection Runner batch execution, per spec.md §3.
package run

import "time"

// Status is one of a RunResult's lifecycle states.
type Status string

const (
	Pending   Status = "PENDING"
	Running   Status = "RUNNING"
	Completed Status = "COMPLETED"
	Failed    Status = "FAILED"
	Cancelled Status = "CANCELLED"
)

// Result is one collection run: team, collection, optional environment,
// status, counters, timestamps. CompletedAt is set iff Status is one of
// the three terminal states.
type Result struct {
	ID              string
	TeamID          string
	ActorID         string
	CollectionID    string
	EnvironmentID   string
	Status          Status
	IterationCount  int
	DelayMs         int
	DataFilename    string
	TotalRequests   int
	PassedRequests  int
	FailedRequests  int
	TotalAssertions int
	PassedAssertions int
	FailedAssertions int
	StartedAt       time.Time
	CompletedAt     time.Time
	CreatedAt       time.Time

	// Orphaned marks a run a startup scan found stuck in RUNNING from a
	// prior process that crashed mid-run, per spec.md §9's "Run state
	// across restarts" note, and force-failed rather than one that ran
	// its course to a real terminal state.
	Orphaned bool
}

// IsTerminal reports whether s is one of the three terminal states.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Iteration is a single request's outcome within a Result, persisted
// once per flattened request per iteration.
type Iteration struct {
	ID               string
	RunID            string
	IterationNumber  int
	RequestName      string
	Method           string
	URL              string
	StatusCode       int
	ResponseSizeBytes int64
	ResponseTimeMs   int64
	Passed           bool
	AssertionResults string // JSON-serialized []scripting.TestResult
	ErrorMessage     string
	CreatedAt        time.Time
}
