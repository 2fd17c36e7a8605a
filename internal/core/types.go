package core

import (
	"encoding/json"
	"time"

	"github.com/gatepace/gatepace/internal/errors"
)

// Registration describes a named external API: a logical service identified
// by a string key with its own pacing and concurrency configuration.
// Immutable once registered.
type Registration struct {
	Name           string  `json:"name"`
	CallsPerSecond float64 `json:"calls_per_second"`
	MaxConcurrent  int     `json:"max_concurrent"`
}

// Provenance captures metadata about how a query was resolved.
type Provenance struct {
	RequestID      string     `json:"request_id"`
	RequestedAt    time.Time  `json:"requested_at"`
	ResolvedAt     time.Time  `json:"resolved_at"`
	API            string     `json:"api"`
	FromCache      bool       `json:"from_cache"`
	CacheExpiresAt *time.Time `json:"cache_expires_at,omitempty"`
}

// Result is the outcome of one logical gateway query. Every query returns
// one, success or not; the gateway never propagates an unhandled failure.
type Result struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ErrorKind  errors.Kind     `json:"error_kind,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	Attempts   int             `json:"attempts"`
	Latency    time.Duration   `json:"latency"`
	Provenance Provenance      `json:"provenance"`
}

// CacheEntry is a persisted response keyed by request fingerprint.
type CacheEntry struct {
	Fingerprint string          `json:"fingerprint"`
	API         string          `json:"api"`
	Target      string          `json:"target"`
	StatusCode  int             `json:"status_code"`
	Payload     json.RawMessage `json:"payload"`
	StoredAt    time.Time       `json:"stored_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// LimiterState is the persisted snapshot of one API's adaptive pacing state.
type LimiterState struct {
	ConsecutiveErrors int        `json:"consecutive_errors"`
	SuccessStreak     int        `json:"success_streak"`
	LastCallAt        *time.Time `json:"last_call_at,omitempty"`
}
