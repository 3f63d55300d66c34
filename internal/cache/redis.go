package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricingops/space-go/internal/logging"
)

// Reconnection policy: a small fixed number of attempts with growing
// backoff. Once exhausted the backend stays disconnected until the next
// operation triggers a fresh attempt.
const (
	maxConnectAttempts = 3
	connectBackoffBase = 100 * time.Millisecond
	connectBackoffMax  = 2 * time.Second
)

// RedisCache is the networked Backend, backed by a TTL-capable Redis
// server. The connection is established lazily on first use; every
// operation ensures connectivity first and fails soft — logging the error
// and returning the operation's benign default — so an unreachable Redis
// degrades the client to "no cache" rather than breaking requests.
//
// Keys are transparently namespaced with the configured prefix before they
// reach the wire, and the prefix is stripped from enumeration results, so
// callers only ever see logical key names.
type RedisCache struct {
	cfg    RedisConfig
	prefix string

	mu        sync.Mutex
	client    *redis.Client
	connected bool
}

// NewRedisCache creates a Redis backend. No connection is made here;
// the first operation dials.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	return &RedisCache{
		cfg:    cfg,
		prefix: cfg.keyPrefix(),
	}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// ensure returns a live client, dialing with bounded retries if needed.
// A nil return means the backend is unreachable and the caller should take
// the benign-default path.
func (c *RedisCache) ensure(ctx context.Context) *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected && c.client != nil {
		return c.client
	}
	if c.client == nil {
		c.client = redis.NewClient(&redis.Options{
			Addr:        c.cfg.Addr(),
			Password:    c.cfg.Password,
			DB:          c.cfg.DB,
			DialTimeout: c.cfg.connectTimeout(),
			MaxRetries:  -1, // reconnection is handled here, not per call
		})
	}

	backoff := connectBackoffBase
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, c.cfg.connectTimeout())
		err := c.client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			c.connected = true
			return c.client
		}
		logging.Op().Warn("redis cache connect failed",
			"addr", c.cfg.Addr(), "attempt", attempt, "error", err)
		if attempt == maxConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > connectBackoffMax {
			backoff = connectBackoffMax
		}
	}
	return nil
}

// fail records an operation error and drops the connected flag so the next
// operation re-dials.
func (c *RedisCache) fail(op string, err error) {
	logging.Op().Warn("redis cache operation failed", "op", op, "error", err)
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	client := c.ensure(ctx)
	if client == nil {
		return nil, ErrNotFound
	}
	val, err := client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		c.fail("get", err)
		return nil, ErrNotFound
	}
	return val, nil
}

// Set stores a value. A ttl <= 0 stores without expiry; otherwise expiry is
// enforced server-side via the native Redis TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	client := c.ensure(ctx)
	if client == nil {
		return nil
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		c.fail("set", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	client := c.ensure(ctx)
	if client == nil {
		return nil
	}
	if err := client.Del(ctx, c.key(key)).Err(); err != nil {
		c.fail("delete", err)
	}
	return nil
}

// Clear removes only keys under this backend's prefix, never a global
// flush: the Redis instance may be shared with other tenants.
func (c *RedisCache) Clear(ctx context.Context) error {
	client := c.ensure(ctx)
	if client == nil {
		return nil
	}
	iter := client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := client.Del(ctx, batch...).Err(); err != nil {
				c.fail("clear", err)
				return nil
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.fail("clear", err)
		return nil
	}
	if len(batch) > 0 {
		if err := client.Del(ctx, batch...).Err(); err != nil {
			c.fail("clear", err)
		}
	}
	return nil
}

func (c *RedisCache) Has(ctx context.Context, key string) (bool, error) {
	client := c.ensure(ctx)
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		c.fail("has", err)
		return false, nil
	}
	return n > 0, nil
}

func (c *RedisCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	client := c.ensure(ctx)
	if client == nil {
		return nil, nil
	}
	if pattern == "" {
		pattern = "*"
	}
	var keys []string
	iter := client.Scan(ctx, 0, c.prefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), c.prefix))
	}
	if err := iter.Err(); err != nil {
		c.fail("keys", err)
		return nil, nil
	}
	return keys, nil
}

// Ping is the one operation where connectivity failure is visible.
func (c *RedisCache) Ping(ctx context.Context) error {
	client := c.ensure(ctx)
	if client == nil {
		return ErrUnavailable
	}
	if err := client.Ping(ctx).Err(); err != nil {
		c.fail("ping", err)
		return err
	}
	return nil
}

func (c *RedisCache) Stats(_ context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Backend:   "redis",
		Addr:      c.cfg.Addr(),
		DB:        c.cfg.DB,
		KeyPrefix: c.prefix,
		Connected: c.connected,
	}, nil
}

// Close terminates the connection. Subsequent operations transparently
// attempt to reconnect.
func (c *RedisCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
