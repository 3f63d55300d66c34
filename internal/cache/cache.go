// Package cache implements the caching layer that sits in front of the
// SPACE platform's read-heavy operations. It exposes a Backend capability
// interface with two interchangeable implementations — an in-process TTL
// store and a Redis-backed store — plus a Coordinator façade that owns key
// namespacing, domain key construction, and cross-entity invalidation.
// Values are opaque byte slices; encoding is left to the caller.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// ErrUnavailable is returned by Ping when the backing store cannot be
// reached within the configured timeout and retry budget.
var ErrUnavailable = errors.New("cache: backend unavailable")

// Backend abstracts a key-value store with per-entry TTL support.
// All operations are safe for concurrent use.
//
// Implementations must degrade gracefully: a backend that cannot reach its
// store reports misses and empty results instead of surfacing transport
// errors, so a caching failure never becomes a request failure. Ping is the
// one operation where connectivity problems are visible.
type Backend interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL, overwriting any existing
	// entry. A TTL <= 0 means the entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by this backend. For shared
	// stores this is scoped to the backend's own key prefix.
	Clear(ctx context.Context) error

	// Has reports whether the key exists and has not expired.
	Has(ctx context.Context, key string) (bool, error)

	// Keys returns the stored keys matching pattern, where '*' matches
	// any run of characters and '?' matches exactly one. An empty
	// pattern returns all keys.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Ping verifies connectivity to the underlying store.
	Ping(ctx context.Context) error

	// Stats returns diagnostic counters for the backend.
	Stats(ctx context.Context) (Stats, error)

	// Close releases all resources held by the backend. Idempotent.
	Close() error
}

// Stats holds backend diagnostics. Entry counters are populated by the
// in-process backend; connection fields by the Redis backend.
type Stats struct {
	Backend string `json:"backend"`

	TotalEntries   int `json:"total_entries,omitempty"`
	ActiveEntries  int `json:"active_entries,omitempty"`
	ExpiredEntries int `json:"expired_entries,omitempty"`

	Addr      string `json:"addr,omitempty"`
	DB        int    `json:"db,omitempty"`
	KeyPrefix string `json:"key_prefix,omitempty"`
	Connected bool   `json:"connected,omitempty"`
}
