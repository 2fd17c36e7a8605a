package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/gatepace/gatepace/internal/config"
	"github.com/gatepace/gatepace/internal/core/cache"
	"github.com/gatepace/gatepace/internal/core/gateway"
	"github.com/gatepace/gatepace/internal/core/monitor"
	"github.com/gatepace/gatepace/internal/core/ratelimit"
	"github.com/gatepace/gatepace/internal/core/store"
	"github.com/gatepace/gatepace/internal/metrics"
	"github.com/gatepace/gatepace/internal/observability"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// buildLimiter creates the limiter and registers every API from the config
// file plus any --apis-file registrations.
func buildLimiter(cfg *config.Config) (*ratelimit.Limiter, error) {
	limiter := ratelimit.New(ratelimit.Config{
		BackoffMultiplier:      cfg.RateLimit.BackoffMultiplier,
		MaxBackoffMultiplier:   cfg.RateLimit.MaxBackoffMultiplier,
		SuccessStreakThreshold: cfg.RateLimit.SuccessStreakThreshold,
		AccelerationFactor:     cfg.RateLimit.AccelerationFactor,
		AutoRegister:           cfg.RateLimit.AutoRegister,
		DefaultCallsPerSecond:  cfg.RateLimit.DefaultCallsPerSecond,
		DefaultMaxConcurrent:   cfg.RateLimit.DefaultMaxConcurrent,
	}, observability.Logger())

	registrations := make(map[string]config.APIConfig, len(cfg.APIs))
	for name, api := range cfg.APIs {
		registrations[name] = api
	}

	if apisFile != "" {
		extra, err := config.LoadAPIsFile(apisFile)
		if err != nil {
			return nil, fmt.Errorf("load apis file: %w", err)
		}
		// --apis-file entries win over config file entries.
		for name, api := range extra {
			registrations[name] = api
		}
	}

	for name, api := range registrations {
		if err := limiter.Register(name, api.CallsPerSecond, api.MaxConcurrent); err != nil {
			return nil, fmt.Errorf("register api %q: %w", name, err)
		}
	}

	return limiter, nil
}

// buildGateway assembles the gateway and its supporting pieces. The store
// may be nil when caching and state persistence are disabled.
func buildGateway(cfg *config.Config, db *store.Store, limiter *ratelimit.Limiter, collector *metrics.Collector) *gateway.Gateway {
	g := &gateway.Gateway{
		Limiter:      limiter,
		Recent:       cache.NewBounded(cfg.Cache.BoundedMaxSize),
		Monitor:      monitor.New(),
		Metrics:      collector,
		Client:       &http.Client{Timeout: cfg.Gateway.RequestTimeout},
		Logger:       observability.Logger(),
		MaxRetries:   cfg.Gateway.MaxRetries,
		RetryDelay:   cfg.Gateway.RetryDelay,
		CacheTTL:     cfg.Cache.TTL,
		CacheEnabled: cfg.Cache.Enabled,
	}
	if db != nil {
		g.Responses = db
	}
	return g
}

// restoreLimiterState carries the adaptive pacing counters over from the
// previous run. Missing state is not an error.
func restoreLimiterState(ctx context.Context, db *store.Store, limiter *ratelimit.Limiter) {
	if db == nil {
		return
	}

	states, err := db.LimiterStates(ctx)
	if err != nil {
		observability.Logger().Warn("failed to restore limiter state", zap.Error(err))
		return
	}
	limiter.Restore(states)
}

// persistLimiterState snapshots the pacing counters for the next run.
// Failures are logged, not fatal: the state is advisory.
func persistLimiterState(ctx context.Context, db *store.Store, limiter *ratelimit.Limiter) {
	if db == nil {
		return
	}

	if err := db.SaveLimiterStates(ctx, limiter.Snapshot()); err != nil {
		observability.Logger().Warn("failed to persist limiter state", zap.Error(err))
	}
}
