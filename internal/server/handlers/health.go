package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker reports whether one component is able to serve.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a plain function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

// Health aggregates component health checks. Checkers are registered at
// startup, before the server accepts traffic.
type Health struct {
	version  string
	checkers map[string]HealthChecker
}

type healthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// NewHealth creates a health aggregate for the given build version.
func NewHealth(version string) *Health {
	return &Health{
		version:  version,
		checkers: make(map[string]HealthChecker),
	}
}

// Register adds a named component check.
func (h *Health) Register(name string, checker HealthChecker) {
	if h == nil || checker == nil {
		return
	}
	h.checkers[name] = checker
}

// Handler serves the aggregate health endpoint: 200 when every check
// passes, 503 otherwise, with per-check detail either way.
func (h *Health) Handler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checkers))
	healthy := true
	for name, checker := range h.checkers {
		if err := checker.CheckHealth(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	status := http.StatusOK
	label := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		label = "unhealthy"
	}

	writeJSON(w, status, healthResponse{
		Status:    label,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// Liveness reports only that the process is running.
func (h *Health) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "alive",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	})
}

// Readiness runs the same checks as the aggregate endpoint; a failing
// dependency takes the instance out of rotation.
func (h *Health) Readiness(w http.ResponseWriter, r *http.Request) {
	h.Handler(w, r)
}
