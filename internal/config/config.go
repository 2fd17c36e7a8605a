package config

import "time"

// Config is the complete application configuration: defaults, then an
// optional YAML config file, then GATEPACE_* environment overrides.
type Config struct {
	Server    ServerConfig         `mapstructure:"server"`
	Store     StoreConfig          `mapstructure:"store"`
	Cache     CacheConfig          `mapstructure:"cache"`
	Gateway   GatewayConfig        `mapstructure:"gateway"`
	RateLimit RateLimitConfig      `mapstructure:"ratelimit"`
	APIs      map[string]APIConfig `mapstructure:"apis"`
	Logging   LoggingConfig        `mapstructure:"logging"`
	Metrics   MetricsConfig        `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration for serve mode.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig controls the persistent response cache and the in-memory
// bounded cache in front of it.
type CacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	TTL            time.Duration `mapstructure:"ttl"`
	BoundedMaxSize int           `mapstructure:"bounded_max_size"`
}

// GatewayConfig contains retry and transport settings.
type GatewayConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RateLimitConfig contains the adaptive pacing knobs shared by all APIs.
type RateLimitConfig struct {
	BackoffMultiplier      float64 `mapstructure:"backoff_multiplier"`
	MaxBackoffMultiplier   float64 `mapstructure:"max_backoff_multiplier"`
	SuccessStreakThreshold int     `mapstructure:"success_streak_threshold"`
	AccelerationFactor     float64 `mapstructure:"acceleration_factor"`
	AutoRegister           bool    `mapstructure:"auto_register"`
	DefaultCallsPerSecond  float64 `mapstructure:"default_calls_per_second"`
	DefaultMaxConcurrent   int     `mapstructure:"default_max_concurrent"`
}

// APIConfig registers one named API with the limiter at startup.
type APIConfig struct {
	CallsPerSecond float64 `mapstructure:"calls_per_second" yaml:"calls_per_second"`
	MaxConcurrent  int     `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// LoggingConfig contains logging configuration.
// Valid levels: debug, info, warn, error.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
