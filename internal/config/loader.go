// Package config provides centralized configuration management for
// placetrack. Values merge in three layers: built-in defaults, an optional
// YAML config file, and PLACETRACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "PLACETRACK"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Defaults returns the built-in base configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Driver: "libsql",
			Path:   "data/placetrack.db",
		},
		Cache: CacheConfig{
			Shards:        16,
			SweepInterval: time.Minute,
			DashboardTTL:  5 * time.Minute,
			CountTTL:      2 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Strict:  LimiterConfig{Window: 15 * time.Minute, MaxRequests: 100},
			General: LimiterConfig{Window: time.Minute, MaxRequests: 300},
		},
		Logging: LoggingConfig{
			Level:   "info",
			Profile: "STRUCTURED",
		},
		Metrics: MetricsConfig{Enabled: true, Port: 9090},
		Health:  HealthConfig{Enabled: true},
	}
}

// Load merges defaults, the optional config file and environment overrides
// into a Config. An empty path searches the standard locations; a missing
// file is not an error, an unreadable one is.
//
// This function is safe to call multiple times (e.g., for config reload).
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.read_timeout", defaults.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout.String())
	v.SetDefault("server.idle_timeout", defaults.Server.IdleTimeout.String())
	v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout.String())
	v.SetDefault("store.driver", defaults.Store.Driver)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("cache.shards", defaults.Cache.Shards)
	v.SetDefault("cache.sweep_interval", defaults.Cache.SweepInterval.String())
	v.SetDefault("cache.dashboard_ttl", defaults.Cache.DashboardTTL.String())
	v.SetDefault("cache.count_ttl", defaults.Cache.CountTTL.String())
	v.SetDefault("rate_limit.strict.window", defaults.RateLimit.Strict.Window.String())
	v.SetDefault("rate_limit.strict.max_requests", defaults.RateLimit.Strict.MaxRequests)
	v.SetDefault("rate_limit.general.window", defaults.RateLimit.General.Window.String())
	v.SetDefault("rate_limit.general.max_requests", defaults.RateLimit.General.MaxRequests)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.profile", defaults.Logging.Profile)
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.port", defaults.Metrics.Port)
	v.SetDefault("health.enabled", defaults.Health.Enabled)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("placetrack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.config/placetrack")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create config decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Cache.Shards <= 0 {
		return fmt.Errorf("cache shards must be positive, got %d", cfg.Cache.Shards)
	}
	for name, limiter := range map[string]LimiterConfig{
		"strict":  cfg.RateLimit.Strict,
		"general": cfg.RateLimit.General,
	} {
		if limiter.MaxRequests <= 0 {
			return fmt.Errorf("rate_limit.%s.max_requests must be positive, got %d", name, limiter.MaxRequests)
		}
		if limiter.Window <= 0 {
			return fmt.Errorf("rate_limit.%s.window must be positive, got %s", name, limiter.Window)
		}
	}
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		return errors.New("store path or url is required")
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}
