package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pricingops/space-go/internal/logging"
	"github.com/pricingops/space-go/internal/metrics"
)

// namespace is prepended to every key the Coordinator touches, on top of
// whatever wire-level prefix the backend itself applies.
const namespace = "space:"

// shortTTL is used for read-only feature evaluations, which go stale faster
// than contracts or tokens because usage state changes frequently. Always
// shorter than any sensible default TTL.
const shortTTL = 60 * time.Second

// invalidateConcurrency bounds the fan-out of InvalidateUser deletions.
const invalidateConcurrency = 4

// Domain key builders. One domain key identifies one logical resource state
// for one user; no two users or resources collide.

// ContractKey returns the cache key for a user's contract.
func ContractKey(userID string) string { return "contract:" + userID }

// FeatureKey returns the cache key for one feature evaluation.
func FeatureKey(userID, featureID string) string {
	return "feature:" + userID + ":" + featureID
}

// SubscriptionKey returns the cache key for a user's subscription.
func SubscriptionKey(userID string) string { return "subscription:" + userID }

// PricingTokenKey returns the cache key for a user's pricing token.
func PricingTokenKey(userID string) string { return "pricing-token:" + userID }

// Coordinator is the façade every other package goes through; the backend
// is never exposed directly. It adds the coordinator namespace, encodes
// values as JSON, and is a second layer of fault isolation above the
// backend's own: if caching is disabled or the backend errors, every method
// returns its benign default and logs instead of failing the caller.
type Coordinator struct {
	mu         sync.Mutex
	backend    Backend
	enabled    bool
	defaultTTL time.Duration
}

// NewCoordinator validates cfg and, when caching is enabled, constructs the
// configured backend. A validation failure is returned loudly; the client
// must not start with a broken cache configuration.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if !cfg.Enabled {
		return &Coordinator{}, nil
	}
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		backend:    backend,
		enabled:    true,
		defaultTTL: cfg.DefaultTTLDuration(),
	}, nil
}

// Enabled reports whether caching was configured on and a backend was
// successfully constructed (and not yet closed).
func (c *Coordinator) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && c.backend != nil
}

func (c *Coordinator) active() (Backend, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.backend == nil {
		return nil, false
	}
	return c.backend, true
}

// DefaultTTL returns the configured default entry lifetime.
func (c *Coordinator) DefaultTTL() time.Duration { return c.defaultTTL }

// ShortTTL returns the reduced lifetime used for read-only evaluations.
func (c *Coordinator) ShortTTL() time.Duration { return shortTTL }

// Get decodes the cached value for key into dest and reports whether a
// live entry was found. A value that cannot be decoded is treated as a
// miss: a poisoned entry must never break application logic.
func (c *Coordinator) Get(ctx context.Context, key string, dest any) bool {
	backend, ok := c.active()
	if !ok {
		return false
	}
	raw, err := backend.Get(ctx, namespace+key)
	if err != nil {
		if err != ErrNotFound {
			logging.Op().Warn("cache get failed", "key", key, "error", err)
		}
		metrics.CacheMiss(key)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logging.Op().Warn("cache entry undecodable, treating as miss", "key", key, "error", err)
		metrics.CacheMiss(key)
		return false
	}
	metrics.CacheHit(key)
	return true
}

// Set stores value under key with the given TTL. A ttl of zero uses the
// configured default; negative means no expiry.
func (c *Coordinator) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	backend, ok := c.active()
	if !ok {
		return
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logging.Op().Warn("cache set skipped, value not serializable", "key", key, "error", err)
		return
	}
	if err := backend.Set(ctx, namespace+key, raw, ttl); err != nil {
		logging.Op().Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes key. Absent keys are not an error.
func (c *Coordinator) Delete(ctx context.Context, key string) {
	backend, ok := c.active()
	if !ok {
		return
	}
	if err := backend.Delete(ctx, namespace+key); err != nil {
		logging.Op().Warn("cache delete failed", "key", key, "error", err)
	}
}

// Has reports whether a live entry exists for key.
func (c *Coordinator) Has(ctx context.Context, key string) bool {
	backend, ok := c.active()
	if !ok {
		return false
	}
	found, err := backend.Has(ctx, namespace+key)
	if err != nil {
		logging.Op().Warn("cache has failed", "key", key, "error", err)
		return false
	}
	return found
}

// Clear removes every entry under the coordinator namespace.
func (c *Coordinator) Clear(ctx context.Context) {
	backend, ok := c.active()
	if !ok {
		return
	}
	keys, err := backend.Keys(ctx, namespace+"*")
	if err != nil {
		logging.Op().Warn("cache clear enumeration failed", "error", err)
		return
	}
	for _, key := range keys {
		if err := backend.Delete(ctx, key); err != nil {
			logging.Op().Warn("cache clear delete failed", "key", key, "error", err)
		}
	}
}

// Keys returns the domain keys matching pattern (namespace stripped).
// An empty pattern returns every key under the namespace.
func (c *Coordinator) Keys(ctx context.Context, pattern string) []string {
	backend, ok := c.active()
	if !ok {
		return nil
	}
	if pattern == "" {
		pattern = "*"
	}
	raw, err := backend.Keys(ctx, namespace+pattern)
	if err != nil {
		logging.Op().Warn("cache keys failed", "pattern", pattern, "error", err)
		return nil
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if strings.HasPrefix(k, namespace) {
			keys = append(keys, strings.TrimPrefix(k, namespace))
		}
	}
	return keys
}

// InvalidateUser removes every cache entry belonging to userID: the
// contract, subscription and pricing-token keys plus all feature
// evaluation keys found by pattern. Any write that changes a user's
// contract or subscription state must call this before re-populating the
// cache with fresh data.
func (c *Coordinator) InvalidateUser(ctx context.Context, userID string) {
	backend, ok := c.active()
	if !ok {
		return
	}
	keys := []string{
		ContractKey(userID),
		SubscriptionKey(userID),
		PricingTokenKey(userID),
	}
	keys = append(keys, c.Keys(ctx, FeatureKey(userID, "*"))...)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(invalidateConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			return backend.Delete(gctx, namespace+key)
		})
	}
	if err := g.Wait(); err != nil {
		logging.Op().Warn("cache user invalidation incomplete", "user", userID, "error", err)
	}
	metrics.CacheInvalidation()
}

// Ping probes backend connectivity.
func (c *Coordinator) Ping(ctx context.Context) error {
	backend, ok := c.active()
	if !ok {
		return ErrUnavailable
	}
	return backend.Ping(ctx)
}

// Stats returns backend diagnostics; ok is false when caching is off.
func (c *Coordinator) Stats(ctx context.Context) (Stats, bool) {
	backend, active := c.active()
	if !active {
		return Stats{}, false
	}
	s, err := backend.Stats(ctx)
	if err != nil {
		logging.Op().Warn("cache stats failed", "error", err)
		return Stats{}, false
	}
	return s, true
}

// Close releases the backend and marks the coordinator disabled.
// Idempotent and safe to call even if caching was never enabled.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend == nil {
		c.enabled = false
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	c.enabled = false
	return err
}
