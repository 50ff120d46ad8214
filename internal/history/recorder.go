// Package history wraps repository.History with the Recorder contract
// from spec.md §4.G: never throw back into the Proxy Executor. Storage
// failures are logged and swallowed — a history write failure must
// never fail the caller's foreground request.
package history

import (
	"context"

	corehistory "github.com/sadopc/courier/internal/core/history"
	"github.com/sadopc/courier/internal/logging"
	"github.com/sadopc/courier/internal/repository"
)

// Recorder appends history entries through a repository.History,
// truncating oversized bodies before they ever reach storage.
type Recorder struct {
	store repository.History
}

// NewRecorder wraps store in Recorder semantics.
func NewRecorder(store repository.History) *Recorder {
	return &Recorder{store: store}
}

// Record truncates RequestBody/ResponseBody at the 1 MiB cap and
// appends the entry. Failures are logged via the operational logger and
// otherwise ignored.
func (r *Recorder) Record(ctx context.Context, e corehistory.Entry) {
	if r == nil || r.store == nil {
		return
	}
	e.RequestBody, _ = corehistory.TruncateBody(e.RequestBody)
	responseTruncated := false
	e.ResponseBody, responseTruncated = corehistory.TruncateBody(e.ResponseBody)
	if responseTruncated {
		e.Truncated = true
	}

	if _, err := r.store.Append(ctx, e); err != nil {
		logging.Op().Error("history write failed",
			"team_id", e.TeamID, "method", e.Method, "url", e.URL, "error", err)
	}
}
