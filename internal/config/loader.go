// Package config provides centralized configuration management for gatepace.
// Layering: built-in defaults, an optional YAML config file (XDG path or
// --config), then GATEPACE_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	appName   = "gatepace"
	envPrefix = "GATEPACE"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Load reads configuration from defaults, the config file (explicit path or
// the default XDG location), and environment variables. Safe to call more
// than once; the last successful load wins.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	} else if path := DefaultConfigPath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			// The default config file is optional; anything else is real.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8480)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.driver", "libsql")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.bounded_max_size", 256)

	v.SetDefault("gateway.max_retries", 3)
	v.SetDefault("gateway.retry_delay", "500ms")
	v.SetDefault("gateway.request_timeout", "10s")

	v.SetDefault("ratelimit.backoff_multiplier", 2.0)
	v.SetDefault("ratelimit.max_backoff_multiplier", 32.0)
	v.SetDefault("ratelimit.success_streak_threshold", 10)
	v.SetDefault("ratelimit.acceleration_factor", 0.9)
	v.SetDefault("ratelimit.auto_register", false)
	v.SetDefault("ratelimit.default_calls_per_second", 1.0)
	v.SetDefault("ratelimit.default_max_concurrent", 2)

	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.enabled", true)
}

// GetConfig returns the current application configuration (thread-safe).
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// DefaultStorePath returns the default path to the database file.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./" + appName + ".db"
	}
	return filepath.Join(home, ".local", "share", appName, appName+".db")
}
