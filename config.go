package space

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pricingops/space-go/internal/cache"
	"github.com/pricingops/space-go/internal/observability"
)

// DefaultTimeout bounds each platform HTTP call.
const DefaultTimeout = 30 * time.Second

// Config holds everything needed to construct a Client. It is read once at
// construction; changing it afterwards has no effect on a live client.
type Config struct {
	// URL is the base address of the SPACE platform, e.g.
	// "https://space.example.com".
	URL string `json:"url" yaml:"url"`

	// APIKey authenticates every call. Sent as the x-api-key header.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Timeout bounds each HTTP call; defaults to 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Cache configures the caching layer in front of read-heavy
	// operations. Disabled by default.
	Cache cache.Config `json:"cache" yaml:"cache"`

	// Telemetry configures optional OpenTelemetry tracing.
	Telemetry observability.Config `json:"telemetry" yaml:"telemetry"`

	// LogFormat ("text"/"json") and LogLevel ("debug".."error") tune the
	// SDK's operational logger. Empty values leave it untouched.
	LogFormat string `json:"log_format" yaml:"log_format"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
}

// DefaultConfig returns a Config with defaults filled in and caching
// disabled.
func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:5403",
		Timeout: DefaultTimeout,
		Cache:   cache.DefaultConfig(),
	}
}

// LoadConfigFromFile reads a YAML config file, layering it over defaults.
func LoadConfigFromFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration, including the nested cache config.
func (c Config) Validate() error {
	if c.URL == "" {
		return &ConfigError{Field: "url", Reason: "must not be empty"}
	}
	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Reason: "must be positive"}
	}
	return c.Cache.Validate()
}
