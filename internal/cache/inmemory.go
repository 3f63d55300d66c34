package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/pricingops/space-go/internal/logging"
)

// sweepInterval is how often the background sweep evicts expired entries.
// It is deliberately independent of any individual entry's TTL; lazy
// eviction on Get/Has keeps reads correct between sweeps.
const sweepInterval = 30 * time.Second

// InMemoryCache is the in-process Backend. Entries live in a mutex-guarded
// map with per-entry TTL; expired entries are evicted lazily on read and
// proactively by a background sweep, which bounds memory growth from keys
// that are written once and never read again.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	closed  bool
	stop    chan struct{}
}

// NewInMemoryCache creates an in-process cache. Entries set with ttl <= 0
// do not expire; default TTLs are the Coordinator's concern.
func NewInMemoryCache() *InMemoryCache {
	c := &InMemoryCache{
		entries: make(map[string]*Entry),
		stop:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.Live() {
		delete(c.entries, key)
		return nil, ErrNotFound
	}
	// Return a copy so callers cannot mutate the stored value.
	cp := make([]byte, len(entry.Value))
	copy(cp, entry.Value)
	return cp, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	c.entries[key] = NewEntry(cp, ttl)
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *InMemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.entries = make(map[string]*Entry)
	return nil
}

func (c *InMemoryCache) Has(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if !entry.Live() {
		delete(c.entries, key)
		return false, nil
	}
	return true, nil
}

// Keys returns all stored keys, live or not — lazy eviction only happens on
// Get/Has. Pattern uses glob syntax ('*' any run, '?' one character); an
// empty pattern returns every key.
func (c *InMemoryCache) Keys(_ context.Context, pattern string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		if pattern != "" {
			ok, err := path.Match(pattern, key)
			if err != nil || !ok {
				continue
			}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (c *InMemoryCache) Ping(_ context.Context) error { return nil }

func (c *InMemoryCache) Stats(_ context.Context) (Stats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Backend: "memory", TotalEntries: len(c.entries)}
	for _, entry := range c.entries {
		if entry.Live() {
			s.ActiveEntries++
		} else {
			s.ExpiredEntries++
		}
	}
	return s, nil
}

// Close stops the background sweep and drops all entries. Idempotent.
func (c *InMemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stop)
	c.entries = make(map[string]*Entry)
	return nil
}

func (c *InMemoryCache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *InMemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	evicted := 0
	for key, entry := range c.entries {
		if !entry.Live() {
			delete(c.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		logging.Op().Debug("cache sweep evicted expired entries", "count", evicted)
	}
}
