package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "libsql", cfg.Store.Driver)
	assert.Equal(t, 16, cfg.Cache.Shards)
	assert.Equal(t, 2*time.Minute, cfg.Cache.CountTTL)
	assert.Equal(t, 100, cfg.RateLimit.Strict.MaxRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Strict.Window)
	assert.Equal(t, 300, cfg.RateLimit.General.MaxRequests)
	assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "placetrack.yaml")
	content := `
server:
  port: 9000
cache:
  dashboard_ttl: 90s
rate_limit:
  strict:
    window: 5m
    max_requests: 20
store:
  path: /tmp/test.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Cache.DashboardTTL)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.Strict.Window)
	assert.Equal(t, 20, cfg.RateLimit.Strict.MaxRequests)
	assert.Equal(t, "/tmp/test.db", cfg.Store.Path)
	// untouched values keep their defaults
	assert.Equal(t, 300, cfg.RateLimit.General.MaxRequests)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLACETRACK_SERVER_PORT", "7070")
	t.Setenv("PLACETRACK_LOGGING_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = -1
	assert.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.RateLimit.Strict.MaxRequests = 0
	assert.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.Cache.Shards = 0
	assert.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.Store.Path = ""
	cfg.Store.URL = ""
	assert.Error(t, Validate(cfg))
}
