// Package metrics exposes gateway call outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the gateway's Prometheus instruments on a private
// registry so serve mode exports exactly what the gateway records.
type Collector struct {
	registry *prometheus.Registry

	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	cacheHits    *prometheus.CounterVec
	retriesTotal *prometheus.CounterVec
	inFlight     *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates and registers the gateway metric instruments.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatepace",
			Name:      "calls_total",
			Help:      "Gateway calls by named API and outcome.",
		}, []string{"api", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gatepace",
			Name:      "call_duration_seconds",
			Help:      "Latency of live gateway calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatepace",
			Name:      "cache_hits_total",
			Help:      "Queries answered from cache, by named API.",
		}, []string{"api"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatepace",
			Name:      "retries_total",
			Help:      "Retry attempts by named API.",
		}, []string{"api"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gatepace",
			Name:      "in_flight_calls",
			Help:      "Calls currently between acquire and release, by named API.",
		}, []string{"api"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatepace",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route, method, and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gatepace",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request handling latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(c.callsTotal, c.callDuration, c.cacheHits, c.retriesTotal, c.inFlight,
		c.httpRequests, c.httpDuration)
	return c
}

// RecordCall counts one finished live call.
func (c *Collector) RecordCall(api string, outcome string, seconds float64) {
	if c == nil {
		return
	}
	c.callsTotal.WithLabelValues(api, outcome).Inc()
	c.callDuration.WithLabelValues(api).Observe(seconds)
}

// RecordCacheHit counts a query answered without a live call.
func (c *Collector) RecordCacheHit(api string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(api).Inc()
}

// RecordRetry counts one retry attempt.
func (c *Collector) RecordRetry(api string) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(api).Inc()
}

// CallStarted and CallFinished bracket a live call for the in-flight gauge.
func (c *Collector) CallStarted(api string) {
	if c == nil {
		return
	}
	c.inFlight.WithLabelValues(api).Inc()
}

func (c *Collector) CallFinished(api string) {
	if c == nil {
		return
	}
	c.inFlight.WithLabelValues(api).Dec()
}

// RecordHTTPRequest counts one served HTTP request.
func (c *Collector) RecordHTTPRequest(route, method string, status int, seconds float64) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(seconds)
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
