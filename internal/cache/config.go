package cache

import (
	"fmt"
	"time"
)

// Backend types accepted by Config.Type.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultTTL            = 300 * time.Second
	DefaultRedisPort      = 6379
	DefaultConnectTimeout = 5 * time.Second
	DefaultKeyPrefix      = "space-client:"
)

// ConfigError reports an invalid cache configuration. It is deliberately
// loud: a broken cache config is a deployment mistake, not a transient
// condition, so construction fails instead of running uncached.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache config: %s: %s", e.Field, e.Reason)
}

// Config is the cache configuration for one client instance. It is
// validated eagerly at construction and immutable afterwards.
type Config struct {
	// Enabled turns the caching layer on. When false no backend is
	// constructed and all cache operations are no-ops.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Type selects the backend: "memory" (default) or "redis".
	Type string `json:"type" yaml:"type"`

	// TTL is the default entry lifetime in seconds. Must be positive
	// when set; defaults to 300.
	TTL int `json:"ttl" yaml:"ttl"`

	// Redis holds connection parameters; required when Type is "redis".
	Redis *RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// RedisConfig holds Redis connection settings for the networked backend.
type RedisConfig struct {
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	Password       string `json:"password" yaml:"password"`
	DB             int    `json:"db" yaml:"db"`
	ConnectTimeout int    `json:"connect_timeout_ms" yaml:"connect_timeout_ms"` // milliseconds
	KeyPrefix      string `json:"key_prefix" yaml:"key_prefix"`
}

// Addr returns the host:port dial address.
func (r *RedisConfig) Addr() string {
	port := r.Port
	if port == 0 {
		port = DefaultRedisPort
	}
	return fmt.Sprintf("%s:%d", r.Host, port)
}

// DefaultConfig returns a disabled cache configuration with defaults
// filled in.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Type:    TypeMemory,
		TTL:     int(DefaultTTL / time.Second),
	}
}

// DefaultTTLDuration returns the configured default TTL as a duration.
func (c Config) DefaultTTLDuration() time.Duration {
	if c.TTL <= 0 {
		return DefaultTTL
	}
	return time.Duration(c.TTL) * time.Second
}

// Validate checks the configuration without side effects. Callers must
// validate before constructing a backend.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TTL < 0 {
		return &ConfigError{Field: "ttl", Reason: fmt.Sprintf("must be positive, got %d", c.TTL)}
	}
	switch c.Type {
	case "", TypeMemory:
		return nil
	case TypeRedis:
		return c.validateRedis()
	default:
		return &ConfigError{Field: "type", Reason: fmt.Sprintf("unknown backend type %q", c.Type)}
	}
}

func (c Config) validateRedis() error {
	r := c.Redis
	if r == nil {
		return &ConfigError{Field: "redis", Reason: "connection parameters required for redis backend"}
	}
	if r.Host == "" {
		return &ConfigError{Field: "redis.host", Reason: "must not be empty"}
	}
	if r.Port != 0 && (r.Port < 1 || r.Port > 65535) {
		return &ConfigError{Field: "redis.port", Reason: fmt.Sprintf("must be in [1, 65535], got %d", r.Port)}
	}
	if r.DB < 0 || r.DB > 15 {
		return &ConfigError{Field: "redis.db", Reason: fmt.Sprintf("must be in [0, 15], got %d", r.DB)}
	}
	if r.ConnectTimeout < 0 {
		return &ConfigError{Field: "redis.connect_timeout_ms", Reason: fmt.Sprintf("must be positive, got %d", r.ConnectTimeout)}
	}
	return nil
}

// connectTimeout returns the configured connect timeout as a duration.
func (r *RedisConfig) connectTimeout() time.Duration {
	if r.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(r.ConnectTimeout) * time.Millisecond
}

// keyPrefix returns the configured key prefix or the default.
func (r *RedisConfig) keyPrefix() string {
	if r.KeyPrefix == "" {
		return DefaultKeyPrefix
	}
	return r.KeyPrefix
}
