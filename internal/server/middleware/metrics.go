package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatepace/gatepace/internal/metrics"
)

// RequestMetrics records per-route request counters and latency. The route
// pattern is resolved after the handler runs so parameterized paths do not
// explode label cardinality.
func RequestMetrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			collector.RecordHTTPRequest(route, r.Method, ww.Status(), time.Since(start).Seconds())
		})
	}
}
