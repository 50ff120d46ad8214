// Package cache defines an abstract key-value caching interface for
// hot-path reads, with an in-process L1 implementation, a Redis-backed
// L2 implementation, and a tiered combination of the two. The
// CachedEnvironments and CachedGlobalVariables decorators in this package
// are its callers: they wrap the repositories so that environment and
// team-global reads are served from a Cache instead of a repository
// round trip each time.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the cache.
var ErrNotFound = errors.New("cache: key not found")

// Cache abstracts a key-value cache with TTL support. All operations
// must be safe for concurrent use.
type Cache interface {
	// Get retrieves the value associated with key. Returns ErrNotFound
	// if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL means the entry
	// does not expire (or uses the implementation's default).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. It is not an error to delete a key that
	// does not exist.
	Delete(ctx context.Context, key string) error

	Close() error
}
