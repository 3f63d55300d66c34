package cache

import (
	"errors"
	"testing"
	"time"
)

func validRedisConfig() Config {
	return Config{
		Enabled: true,
		Type:    TypeRedis,
		TTL:     300,
		Redis: &RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
	}
}

func TestConfigValidate_DisabledSkipsChecks(t *testing.T) {
	cfg := Config{Enabled: false, Type: "bogus", TTL: -1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled config should not be validated further: %v", err)
	}
}

func TestConfigValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative ttl", func(c *Config) { c.TTL = -5 }},
		{"unknown type", func(c *Config) { c.Type = "memcached" }},
		{"redis without params", func(c *Config) { c.Redis = nil }},
		{"empty host", func(c *Config) { c.Redis.Host = "" }},
		{"port too low", func(c *Config) { c.Redis.Port = -1 }},
		{"port too high", func(c *Config) { c.Redis.Port = 70000 }},
		{"db too high", func(c *Config) { c.Redis.DB = 16 }},
		{"db negative", func(c *Config) { c.Redis.DB = -1 }},
		{"negative timeout", func(c *Config) { c.Redis.ConnectTimeout = -100 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validRedisConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a configuration error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestConfigValidate_Accepts(t *testing.T) {
	cfg := validRedisConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid redis config rejected: %v", err)
	}

	cfg = Config{Enabled: true, Type: TypeMemory, TTL: 60}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid memory config rejected: %v", err)
	}

	// Zero values mean "use defaults" and pass validation.
	cfg = Config{Enabled: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero-value config rejected: %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Fatal("default config should be disabled")
	}
	if cfg.DefaultTTLDuration() != 300*time.Second {
		t.Fatalf("expected default TTL 300s, got %v", cfg.DefaultTTLDuration())
	}

	r := &RedisConfig{Host: "cache.internal"}
	if r.Addr() != "cache.internal:6379" {
		t.Fatalf("expected default port 6379, got %s", r.Addr())
	}
	if r.keyPrefix() != DefaultKeyPrefix {
		t.Fatalf("expected default key prefix, got %q", r.keyPrefix())
	}
	if r.connectTimeout() != DefaultConnectTimeout {
		t.Fatalf("expected default connect timeout, got %v", r.connectTimeout())
	}
}

func TestNewBackend_SelectsByType(t *testing.T) {
	backend, err := NewBackend(Config{Enabled: true, TTL: 60})
	if err != nil {
		t.Fatalf("NewBackend failed: %v", err)
	}
	defer backend.Close()
	if _, ok := backend.(*InMemoryCache); !ok {
		t.Fatalf("expected in-memory backend by default, got %T", backend)
	}

	backend, err = NewBackend(validRedisConfig())
	if err != nil {
		t.Fatalf("NewBackend failed: %v", err)
	}
	defer backend.Close()
	if _, ok := backend.(*RedisCache); !ok {
		t.Fatalf("expected redis backend, got %T", backend)
	}
}

func TestNewBackend_RejectsInvalid(t *testing.T) {
	if _, err := NewBackend(Config{Enabled: true, Type: TypeRedis}); err == nil {
		t.Fatal("expected error for redis backend without connection params")
	}
	if _, err := NewBackend(Config{Enabled: true, Type: "bogus"}); err == nil {
		t.Fatal("expected error for unknown backend type")
	}
}
