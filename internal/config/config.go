package config

import "time"

// Config represents the complete application configuration, merged from
// defaults, an optional YAML config file and PLACETRACK_* environment
// variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig tunes the in-process TTL cache.
type CacheConfig struct {
	// Shards is the number of cache shards; more shards reduce lock
	// contention under concurrent access.
	Shards int `mapstructure:"shards"`

	// SweepInterval is how often the background sweeper visits one shard.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// DashboardTTL bounds staleness of the dashboard statistics entry.
	DashboardTTL time.Duration `mapstructure:"dashboard_ttl"`

	// CountTTL bounds staleness of memoized pagination totals.
	CountTTL time.Duration `mapstructure:"count_ttl"`
}

// RateLimitConfig holds the per-client request budgets. Write-heavy routes
// run under Strict, read routes under General.
type RateLimitConfig struct {
	Strict  LimiterConfig `mapstructure:"strict"`
	General LimiterConfig `mapstructure:"general"`
}

// LimiterConfig is one sliding-window budget.
type LimiterConfig struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// LoggingConfig contains logging configuration.
// Profile selects the gofulmen logging complexity level:
// SIMPLE (console only) or STRUCTURED (structured sinks, correlation IDs).
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}
