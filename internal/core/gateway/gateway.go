// Package gateway is the sole entry point for making a named, rate-limited,
// cached, retried call to an external API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/core/cache"
	"github.com/gatepace/gatepace/internal/core/monitor"
	"github.com/gatepace/gatepace/internal/core/ratelimit"
	"github.com/gatepace/gatepace/internal/errors"
	"github.com/gatepace/gatepace/internal/metrics"
)

// ResponseCache persists responses across runs, keyed by fingerprint.
type ResponseCache interface {
	GetCachedResponse(ctx context.Context, fingerprint string) (*core.CacheEntry, error)
	SetCachedResponse(ctx context.Context, entry *core.CacheEntry, ttl time.Duration) error
}

// Transform post-processes a raw payload before it is cached and returned.
// Supplied per call.
type Transform func(raw []byte) ([]byte, error)

// Request describes one logical gateway query.
type Request struct {
	API       string
	Target    string
	Params    map[string]string
	Method    string
	Headers   map[string]string
	UseCache  bool
	Transform Transform
}

// Gateway orchestrates cache lookup, rate-limited execution with retry, and
// outcome recording for every external call.
type Gateway struct {
	Limiter   *ratelimit.Limiter
	Responses ResponseCache
	Recent    *cache.Bounded
	Monitor   *monitor.Monitor
	Metrics   *metrics.Collector
	Client    *http.Client
	Logger    *zap.Logger

	MaxRetries   int
	RetryDelay   time.Duration
	CacheTTL     time.Duration
	CacheEnabled bool

	Clock func() time.Time
}

// Query executes one logical request. Every outcome is a typed Result with
// an explicit success flag; no failure propagates past this boundary.
func (g *Gateway) Query(ctx context.Context, req Request) *core.Result {
	if ctx == nil {
		ctx = context.Background()
	}

	requestedAt := g.now()
	provenance := core.Provenance{
		RequestID:   uuid.New().String(),
		RequestedAt: requestedAt,
		API:         strings.TrimSpace(req.API),
	}

	if g == nil || g.Limiter == nil {
		return failure(provenance, g.now(), 0, errors.KindConfiguration, "gateway is not configured", 0)
	}

	apiName := strings.TrimSpace(req.API)
	target := strings.TrimSpace(req.Target)
	if apiName == "" || target == "" {
		return failure(provenance, g.now(), 0, errors.KindConfiguration, "api name and target are required", 0)
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	fingerprint := core.Fingerprint(method, target, req.Params)

	if g.cacheable(method, req.UseCache) {
		if result := g.fromCache(ctx, fingerprint, provenance); result != nil {
			return result
		}
	}

	if err := g.Limiter.Acquire(ctx, apiName); err != nil {
		kind := errors.KindOf(err)
		return failure(provenance, g.now(), 0, kind, err.Error(), 0)
	}
	defer g.Limiter.Release(apiName)

	g.Metrics.CallStarted(apiName)
	defer g.Metrics.CallFinished(apiName)

	result := g.execute(ctx, method, apiName, target, fingerprint, req, provenance)

	g.Monitor.RecordCall(result.Success, result.Latency)
	outcome := "success"
	if !result.Success {
		outcome = string(result.ErrorKind)
	}
	g.Metrics.RecordCall(apiName, outcome, result.Latency.Seconds())

	return result
}

// execute runs the retry loop. 429s, upstream errors, timeouts, and
// transport failures all draw from one shared retry budget.
func (g *Gateway) execute(ctx context.Context, method, apiName, target, fingerprint string, req Request, provenance core.Provenance) *core.Result {
	var (
		lastKind   errors.Kind
		lastStatus int
		lastDetail string
		attempts   int
	)

	for attempt := 0; attempt <= g.maxRetries(); attempt++ {
		if attempt > 0 {
			g.Metrics.RecordRetry(apiName)
			if err := g.sleep(ctx, g.retryDelay()*(1<<(attempt-1))); err != nil {
				return failure(provenance, g.now(), lastStatus, errors.KindOf(err), err.Error(), attempts)
			}
		}
		attempts++

		payload, status, err := g.do(ctx, method, target, req)
		if err != nil {
			g.Limiter.RecordError(apiName)
			lastKind = errors.ClassifyTransport(err)
			lastStatus = 0
			lastDetail = err.Error()
			g.logger().Debug("gateway call failed",
				zap.String("api", apiName),
				zap.String("kind", string(lastKind)),
				zap.Int("attempt", attempts),
				zap.Error(err))
			if !errors.Retryable(lastKind) {
				break
			}
			continue
		}

		switch {
		case status >= 200 && status < 300:
			if req.Transform != nil {
				transformed, err := req.Transform(payload)
				if err != nil {
					// The API behaved; the caller's post-processor did
					// not. Counts as a success for pacing, fails the
					// query without retry.
					g.Limiter.RecordSuccess(apiName)
					detail := fmt.Sprintf("transform payload: %v", err)
					return failure(provenance, g.now(), status, errors.KindConfiguration, detail, attempts)
				}
				payload = transformed
			}

			g.Limiter.RecordSuccess(apiName)
			if g.cacheable(method, req.UseCache) {
				g.writeCache(ctx, apiName, target, fingerprint, status, payload)
			}

			resolvedAt := g.now()
			provenance.ResolvedAt = resolvedAt
			return &core.Result{
				Success:    true,
				StatusCode: status,
				Payload:    payload,
				Attempts:   attempts,
				Latency:    resolvedAt.Sub(provenance.RequestedAt),
				Provenance: provenance,
			}
		case status == http.StatusTooManyRequests:
			g.Limiter.RecordError(apiName)
			lastKind = errors.KindRateLimited
			lastStatus = status
			lastDetail = "upstream rate limit exceeded"
		default:
			g.Limiter.RecordError(apiName)
			lastKind = errors.KindUpstream
			lastStatus = status
			lastDetail = fmt.Sprintf("unexpected status %d", status)
		}
	}

	return failure(provenance, g.now(), lastStatus, lastKind, lastDetail, attempts)
}

// do performs a single transport call: GET sends params as the query
// string, other methods send them as a JSON body. Caller-supplied headers
// pass through untouched.
func (g *Gateway) do(ctx context.Context, method, target string, req Request) ([]byte, int, error) {
	endpoint, err := url.Parse(target)
	if err != nil {
		return nil, 0, fmt.Errorf("parse target: %w", err)
	}

	var body io.Reader
	if method == http.MethodGet {
		if len(req.Params) > 0 {
			query := endpoint.Query()
			for key, value := range req.Params {
				query.Set(key, value)
			}
			endpoint.RawQuery = query.Encode()
		}
	} else if len(req.Params) > 0 {
		encoded, err := json.Marshal(req.Params)
		if err != nil {
			return nil, 0, fmt.Errorf("encode params: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := g.client().Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}

	return payload, resp.StatusCode, nil
}

// fromCache consults the bounded cache, then the persistent store. Read
// failures are logged and treated as a miss.
func (g *Gateway) fromCache(ctx context.Context, fingerprint string, provenance core.Provenance) *core.Result {
	if recent, ok := g.Recent.Get(fingerprint); ok {
		g.Metrics.RecordCacheHit(provenance.API)
		return cached(provenance, g.now(), recent.StatusCode, recent.Payload, nil)
	}

	if g.Responses == nil {
		return nil
	}

	entry, err := g.Responses.GetCachedResponse(ctx, fingerprint)
	if err != nil {
		g.logger().Warn("cache read failed, treating as miss",
			zap.String("api", provenance.API),
			zap.Error(err))
		return nil
	}
	if entry == nil {
		return nil
	}

	g.Recent.Set(fingerprint, cache.Entry{StatusCode: entry.StatusCode, Payload: entry.Payload})
	g.Metrics.RecordCacheHit(provenance.API)
	expires := entry.ExpiresAt
	return cached(provenance, g.now(), entry.StatusCode, entry.Payload, &expires)
}

// writeCache stores a successful payload in both caches. Write failures
// are logged and swallowed; the cache never fails a request.
func (g *Gateway) writeCache(ctx context.Context, apiName, target, fingerprint string, status int, payload []byte) {
	g.Recent.Set(fingerprint, cache.Entry{StatusCode: status, Payload: payload})

	if g.Responses == nil || g.CacheTTL <= 0 {
		return
	}

	entry := &core.CacheEntry{
		Fingerprint: fingerprint,
		API:         apiName,
		Target:      target,
		StatusCode:  status,
		Payload:     payload,
	}
	if err := g.Responses.SetCachedResponse(ctx, entry, g.CacheTTL); err != nil {
		g.logger().Warn("cache write failed",
			zap.String("api", apiName),
			zap.String("kind", string(errors.KindCacheWrite)),
			zap.Error(err))
	}
}

func (g *Gateway) cacheable(method string, useCache bool) bool {
	return method == http.MethodGet && useCache && g.CacheEnabled
}

func (g *Gateway) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) maxRetries() int {
	if g == nil || g.MaxRetries < 0 {
		return 0
	}
	return g.MaxRetries
}

func (g *Gateway) retryDelay() time.Duration {
	if g == nil || g.RetryDelay <= 0 {
		return 500 * time.Millisecond
	}
	return g.RetryDelay
}

func (g *Gateway) client() *http.Client {
	if g != nil && g.Client != nil {
		return g.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (g *Gateway) logger() *zap.Logger {
	if g != nil && g.Logger != nil {
		return g.Logger
	}
	return zap.NewNop()
}

func (g *Gateway) now() time.Time {
	if g != nil && g.Clock != nil {
		return g.Clock()
	}
	return time.Now().UTC()
}

func cached(provenance core.Provenance, resolvedAt time.Time, status int, payload []byte, expiresAt *time.Time) *core.Result {
	provenance.ResolvedAt = resolvedAt
	provenance.FromCache = true
	provenance.CacheExpiresAt = expiresAt
	return &core.Result{
		Success:    true,
		StatusCode: status,
		Payload:    payload,
		Latency:    resolvedAt.Sub(provenance.RequestedAt),
		Provenance: provenance,
	}
}

func failure(provenance core.Provenance, resolvedAt time.Time, status int, kind errors.Kind, detail string, attempts int) *core.Result {
	provenance.ResolvedAt = resolvedAt
	return &core.Result{
		Success:    false,
		StatusCode: status,
		ErrorKind:  kind,
		Detail:     detail,
		Attempts:   attempts,
		Latency:    resolvedAt.Sub(provenance.RequestedAt),
		Provenance: provenance,
	}
}
