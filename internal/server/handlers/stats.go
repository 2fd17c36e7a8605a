package handlers

import (
	"net/http"

	"github.com/gatepace/gatepace/internal/core/cache"
	"github.com/gatepace/gatepace/internal/core/monitor"
	"github.com/gatepace/gatepace/internal/core/ratelimit"
	"github.com/gatepace/gatepace/internal/output"
)

// Stats serves the monitor and cache counters as JSON.
func Stats(mon *monitor.Monitor, recent *cache.Bounded) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, output.StatsReport{
			Monitor: mon.Summary(),
			Cache:   recent.Stats(),
		})
	}
}

// APIs lists the registered APIs with their pacing configuration.
func APIs(limiter *ratelimit.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, limiter.Registrations())
	}
}

// NotFound is the JSON 404 fallback.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "resource not found"})
}

// MethodNotAllowed is the JSON 405 fallback.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
