package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 8480, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	require.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	require.Equal(t, 3, cfg.Gateway.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.Gateway.RetryDelay)
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, time.Hour, cfg.Cache.TTL)
	require.Equal(t, 256, cfg.Cache.BoundedMaxSize)
	require.Equal(t, 2.0, cfg.RateLimit.BackoffMultiplier)
	require.Equal(t, 32.0, cfg.RateLimit.MaxBackoffMultiplier)
	require.Equal(t, 10, cfg.RateLimit.SuccessStreakThreshold)
	require.InDelta(t, 0.9, cfg.RateLimit.AccelerationFactor, 1e-9)
	require.False(t, cfg.RateLimit.AutoRegister)
	require.NotEmpty(t, cfg.Store.Path)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  max_retries: 5
  retry_delay: 250ms
cache:
  ttl: 30m
apis:
  hunter:
    calls_per_second: 2
    max_concurrent: 1
  clearbit:
    calls_per_second: 10
    max_concurrent: 4
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Gateway.MaxRetries)
	require.Equal(t, 250*time.Millisecond, cfg.Gateway.RetryDelay)
	require.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	require.Len(t, cfg.APIs, 2)
	require.Equal(t, 2.0, cfg.APIs["hunter"].CallsPerSecond)
	require.Equal(t, 4, cfg.APIs["clearbit"].MaxConcurrent)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GATEPACE_GATEWAY_MAX_RETRIES", "7")
	t.Setenv("GATEPACE_LOGGING_LEVEL", "debug")
	t.Setenv("GATEPACE_SERVER_HOST", "0.0.0.0")
	t.Setenv("GATEPACE_SERVER_PORT", "9000")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Gateway.MaxRetries)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadAPIsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apis:
  yelp:
    calls_per_second: 5
    max_concurrent: 3
`), 0o600))

	apis, err := LoadAPIsFile(path)
	require.NoError(t, err)
	require.Len(t, apis, 1)
	require.Equal(t, 5.0, apis["yelp"].CallsPerSecond)
	require.Equal(t, 3, apis["yelp"].MaxConcurrent)
}

func TestLoadAPIsFileValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apis:
  bad:
    calls_per_second: 0
    max_concurrent: 1
`), 0o600))

	_, err := LoadAPIsFile(path)
	require.Error(t, err)
}
