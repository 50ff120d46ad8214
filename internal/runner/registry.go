package runner

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sadopc/courier/internal/core/run"
)

// Handle is the process-local, in-memory view of one in-flight run: the
// Registry's entry, not the durable record (that's repository.Runs).
// Cancel is safe to call any number of times from any goroutine.
type Handle struct {
	id     string
	cancel context.CancelFunc
	status atomic.Value // run.Status
}

func newHandle(id string, cancel context.CancelFunc) *Handle {
	h := &Handle{id: id, cancel: cancel}
	h.status.Store(run.Pending)
	return h
}

// Status returns the handle's last-observed status. This is a
// best-effort, process-local mirror of the persisted RunResult.Status;
// repository.Runs.Get is the source of truth once a run completes or
// its handle is evicted.
func (h *Handle) Status() run.Status { return h.status.Load().(run.Status) }

func (h *Handle) setStatus(s run.Status) { h.status.Store(s) }

// Cancel requests cooperative cancellation. The run's goroutine
// observes this via ctx.Err() between iterations/requests and
// transitions to Cancelled — it never stops mid-request.
func (h *Handle) Cancel() { h.cancel() }

// Registry tracks every run this process is currently driving. Runs
// started by other processes (or started earlier and since evicted
// here) are invisible to the Registry; callers fall back to
// repository.Runs for those.
type Registry struct {
	handles sync.Map // runID (string) -> *Handle
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register creates and stores a Handle for a freshly started run.
func (reg *Registry) Register(runID string, cancel context.CancelFunc) *Handle {
	h := newHandle(runID, cancel)
	reg.handles.Store(runID, h)
	return h
}

// Get returns the Handle for runID, if this process is (or was, until
// Forget) driving it.
func (reg *Registry) Get(runID string) (*Handle, bool) {
	v, ok := reg.handles.Load(runID)
	if !ok {
		return nil, false
	}
	return v.(*Handle), true
}

// Cancel requests cancellation of runID if this process holds a Handle
// for it, reporting whether one was found.
func (reg *Registry) Cancel(runID string) bool {
	h, ok := reg.Get(runID)
	if !ok {
		return false
	}
	h.Cancel()
	return true
}

// Forget drops a run's Handle once it has reached a terminal state;
// the persisted RunResult remains queryable through repository.Runs.
func (reg *Registry) Forget(runID string) {
	reg.handles.Delete(runID)
}
