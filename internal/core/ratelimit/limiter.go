// Package ratelimit throttles and admits requests per named API, adapting
// pace to recent error and success history.
package ratelimit

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/errors"
)

// Config holds the adaptive pacing knobs shared by all registered APIs.
type Config struct {
	BackoffMultiplier      float64
	MaxBackoffMultiplier   float64
	SuccessStreakThreshold int
	AccelerationFactor     float64

	// AutoRegister opts in to creating a default registration for unknown
	// API names instead of failing Acquire. Off by default.
	AutoRegister          bool
	DefaultCallsPerSecond float64
	DefaultMaxConcurrent  int
}

func configWithDefaults(cfg Config) Config {
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 2
	}
	if cfg.MaxBackoffMultiplier <= 1 {
		cfg.MaxBackoffMultiplier = 32
	}
	if cfg.SuccessStreakThreshold <= 0 {
		cfg.SuccessStreakThreshold = 10
	}
	if cfg.AccelerationFactor <= 0 || cfg.AccelerationFactor >= 1 {
		cfg.AccelerationFactor = 0.9
	}
	if cfg.DefaultCallsPerSecond <= 0 {
		cfg.DefaultCallsPerSecond = 1
	}
	if cfg.DefaultMaxConcurrent <= 0 {
		cfg.DefaultMaxConcurrent = 2
	}
	return cfg
}

// Limiter enforces per-API pacing and concurrency admission.
type Limiter struct {
	mu     sync.Mutex
	apis   map[string]*apiState
	cfg    Config
	logger *zap.Logger
}

// apiState is one registered API's mutable pacing state. The pacer grant
// interval is recomputed from the counters on every recorded outcome.
type apiState struct {
	mu                sync.Mutex
	reg               core.Registration
	pacer             *rate.Limiter
	slots             chan struct{}
	consecutiveErrors int
	successStreak     int
	lastCallAt        time.Time
}

// New creates a limiter with no registered APIs.
func New(cfg Config, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		apis:   make(map[string]*apiState),
		cfg:    configWithDefaults(cfg),
		logger: logger,
	}
}

// Register creates pacing state for a named API. Registering the same name
// twice is a configuration error; registrations are immutable.
func (l *Limiter) Register(name string, callsPerSecond float64, maxConcurrent int) error {
	if l == nil {
		return errors.NewConfiguration("ratelimit.register", "limiter is not initialized")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.NewConfiguration("ratelimit.register", "api name is required")
	}
	if callsPerSecond <= 0 {
		return errors.NewConfiguration("ratelimit.register", "api %q: calls per second must be positive", name)
	}
	if maxConcurrent <= 0 {
		return errors.NewConfiguration("ratelimit.register", "api %q: max concurrent must be positive", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.apis[name]; exists {
		return errors.NewConfiguration("ratelimit.register", "api %q is already registered", name)
	}

	l.apis[name] = &apiState{
		reg: core.Registration{
			Name:           name,
			CallsPerSecond: callsPerSecond,
			MaxConcurrent:  maxConcurrent,
		},
		pacer: rate.NewLimiter(rate.Limit(callsPerSecond), 1),
		slots: make(chan struct{}, maxConcurrent),
	}
	return nil
}

// Acquire blocks until a concurrency slot is free and the pacing interval
// since the last grant has elapsed. Callers must Release exactly once per
// successful Acquire, on every exit path. Cancellation during either wait
// leaves no slot held.
func (l *Limiter) Acquire(ctx context.Context, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := l.state(name)
	if err != nil {
		return err
	}

	select {
	case st.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := st.pacer.Wait(ctx); err != nil {
		<-st.slots
		return err
	}

	st.mu.Lock()
	st.lastCallAt = time.Now().UTC()
	st.mu.Unlock()
	return nil
}

// Release frees the concurrency slot taken by Acquire.
func (l *Limiter) Release(name string) {
	st, err := l.state(name)
	if err != nil {
		return
	}

	select {
	case <-st.slots:
	default:
	}
}

// RecordSuccess zeroes the consecutive-error count and extends the success
// streak, accelerating the pace once the streak passes the threshold.
func (l *Limiter) RecordSuccess(name string) {
	st, err := l.lookup(name)
	if err != nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.consecutiveErrors = 0
	st.successStreak++
	l.applyIntervalLocked(st)
}

// RecordError zeroes the success streak and extends the consecutive-error
// count, backing off the pace exponentially.
func (l *Limiter) RecordError(name string) {
	st, err := l.lookup(name)
	if err != nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.successStreak = 0
	st.consecutiveErrors++
	l.applyIntervalLocked(st)
}

// Interval returns the currently computed grant interval for an API.
func (l *Limiter) Interval(name string) (time.Duration, error) {
	st, err := l.lookup(name)
	if err != nil {
		return 0, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return l.intervalLocked(st), nil
}

// InFlight returns the number of currently held concurrency slots.
func (l *Limiter) InFlight(name string) int {
	st, err := l.lookup(name)
	if err != nil {
		return 0
	}
	return len(st.slots)
}

// Registrations lists all registered APIs sorted by name.
func (l *Limiter) Registrations() []core.Registration {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	regs := make([]core.Registration, 0, len(l.apis))
	for _, st := range l.apis {
		regs = append(regs, st.reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Name < regs[j].Name })
	return regs
}

// Snapshot captures each API's adaptive counters for persistence.
func (l *Limiter) Snapshot() map[string]core.LimiterState {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make(map[string]core.LimiterState, len(l.apis))
	for name, st := range l.apis {
		st.mu.Lock()
		state := core.LimiterState{
			ConsecutiveErrors: st.consecutiveErrors,
			SuccessStreak:     st.successStreak,
		}
		if !st.lastCallAt.IsZero() {
			at := st.lastCallAt
			state.LastCallAt = &at
		}
		st.mu.Unlock()
		snapshot[name] = state
	}
	return snapshot
}

// Restore replays persisted counters into matching registrations. Unknown
// names are skipped; a fresh registration keeps its clean state.
func (l *Limiter) Restore(states map[string]core.LimiterState) {
	if l == nil || len(states) == 0 {
		return
	}

	for name, state := range states {
		st, err := l.lookup(name)
		if err != nil {
			continue
		}

		st.mu.Lock()
		st.consecutiveErrors = state.ConsecutiveErrors
		st.successStreak = state.SuccessStreak
		if state.LastCallAt != nil {
			st.lastCallAt = *state.LastCallAt
		}
		l.applyIntervalLocked(st)
		st.mu.Unlock()
	}
}

// state resolves a name for Acquire, honoring the AutoRegister policy.
func (l *Limiter) state(name string) (*apiState, error) {
	st, err := l.lookup(name)
	if err == nil {
		return st, nil
	}

	if l == nil || !l.cfg.AutoRegister {
		return nil, err
	}

	l.logger.Warn("auto-registering unknown api with default limits",
		zap.String("api", name),
		zap.Float64("calls_per_second", l.cfg.DefaultCallsPerSecond),
		zap.Int("max_concurrent", l.cfg.DefaultMaxConcurrent))

	if regErr := l.Register(name, l.cfg.DefaultCallsPerSecond, l.cfg.DefaultMaxConcurrent); regErr != nil {
		// Lost a registration race; the other registration wins.
		if st, lookupErr := l.lookup(name); lookupErr == nil {
			return st, nil
		}
		return nil, regErr
	}
	return l.lookup(name)
}

func (l *Limiter) lookup(name string) (*apiState, error) {
	if l == nil {
		return nil, errors.NewConfiguration("ratelimit", "limiter is not initialized")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.apis[strings.TrimSpace(name)]
	if !ok {
		return nil, errors.NewConfiguration("ratelimit", "api %q is not registered", name)
	}
	return st, nil
}

// intervalLocked computes the adaptive grant interval. Backoff wins over
// acceleration; the multiplier is capped at MaxBackoffMultiplier.
func (l *Limiter) intervalLocked(st *apiState) time.Duration {
	base := time.Duration(float64(time.Second) / st.reg.CallsPerSecond)

	switch {
	case st.consecutiveErrors > 0:
		multiplier := math.Min(
			math.Pow(l.cfg.BackoffMultiplier, float64(st.consecutiveErrors)),
			l.cfg.MaxBackoffMultiplier,
		)
		return time.Duration(float64(base) * multiplier)
	case st.successStreak > l.cfg.SuccessStreakThreshold:
		return time.Duration(float64(base) * l.cfg.AccelerationFactor)
	default:
		return base
	}
}

func (l *Limiter) applyIntervalLocked(st *apiState) {
	interval := l.intervalLocked(st)
	if interval <= 0 {
		return
	}
	st.pacer.SetLimit(rate.Limit(float64(time.Second) / float64(interval)))
}
