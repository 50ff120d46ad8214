// Package history implements the History Recorder: a write-only,
// append-only log of dispatched requests. Recording never throws back
// into the caller (the Proxy Executor) — failures are logged and
// dropped; truncation is deterministic and idempotent.
package history

import "time"

// BodyTruncationCap is the size, in bytes, at which stored request/
// response bodies are cut and annotated (spec.md §4.F step 10). This is
// independent of, and far smaller than, the 10 MiB cap the executor
// itself enforces on reading a live response.
const BodyTruncationCap = 1 << 20 // 1 MiB

// TruncationMarker is appended to a body that exceeded BodyTruncationCap.
const TruncationMarker = "\n...[truncated]"

// Entry is one RequestHistory record (spec.md §3): a denormalized
// snapshot of what was actually sent and received, never mutated once
// written.
type Entry struct {
	ID     int64
	// HistoryID is a caller-supplied UUID threading a ProxyResponse back
	// to the Append call it came from. A retry that resubmits the same
	// HistoryID deduplicates against the row already written instead of
	// appending a second entry (spec.md §4.F step 11, §8's round-trip
	// property). Empty means the caller didn't supply one and this
	// Append can never be deduplicated against.
	HistoryID      string
	TeamID         string
	ActorID        string
	CollectionID   string
	RequestID      string
	EnvironmentID  string
	Method         string
	URL            string
	RequestHeaders string // JSON-encoded
	RequestBody    string
	StatusCode     int
	ResponseHeaders string // JSON-encoded
	ResponseBody   string
	ContentType    string
	SizeBytes      int64
	DurationMs     int64
	Truncated      bool
	CreatedAt      time.Time
}

// TruncateBody applies the 1 MiB cap and trailing marker. A truncated
// body is the first BodyTruncationCap bytes plus the marker, so passing
// it through again cuts at the same place and returns the same string,
// though wasTruncated is reported true again.
func TruncateBody(body string) (truncated string, wasTruncated bool) {
	if len(body) <= BodyTruncationCap {
		return body, false
	}
	return body[:BodyTruncationCap] + TruncationMarker, true
}
