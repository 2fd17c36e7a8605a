package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/core/cache"
	"github.com/gatepace/gatepace/internal/core/monitor"
	"github.com/gatepace/gatepace/internal/core/ratelimit"
	gperrors "github.com/gatepace/gatepace/internal/errors"
)

// memoryResponseCache is a test double for the persistent store.
type memoryResponseCache struct {
	entries  map[string]*core.CacheEntry
	getErr   error
	setErr   error
	setCalls int
}

func newMemoryResponseCache() *memoryResponseCache {
	return &memoryResponseCache{entries: make(map[string]*core.CacheEntry)}
}

func (m *memoryResponseCache) GetCachedResponse(_ context.Context, fingerprint string) (*core.CacheEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entries[fingerprint], nil
}

func (m *memoryResponseCache) SetCachedResponse(_ context.Context, entry *core.CacheEntry, ttl time.Duration) error {
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	expires := time.Now().UTC().Add(ttl)
	entry.ExpiresAt = expires
	m.entries[entry.Fingerprint] = entry
	return nil
}

func newTestGateway(t *testing.T, apis ...string) *Gateway {
	t.Helper()

	limiter := ratelimit.New(ratelimit.Config{}, zap.NewNop())
	for _, name := range apis {
		require.NoError(t, limiter.Register(name, 1000, 4))
	}

	return &Gateway{
		Limiter:      limiter,
		Responses:    newMemoryResponseCache(),
		Recent:       cache.NewBounded(16),
		Monitor:      monitor.New(),
		Logger:       zap.NewNop(),
		MaxRetries:   3,
		RetryDelay:   time.Millisecond,
		CacheTTL:     time.Hour,
		CacheEnabled: true,
	}
}

func TestGatewayQuery(t *testing.T) {
	t.Run("SucceedsAfterRateLimitRetries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"ok":true}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "flaky")
		result := g.Query(context.Background(), Request{API: "flaky", Target: srv.URL})

		require.True(t, result.Success)
		require.Equal(t, http.StatusOK, result.StatusCode)
		require.Equal(t, 3, result.Attempts)
		require.Equal(t, int32(3), calls.Load())
		require.JSONEq(t, `{"ok":true}`, string(result.Payload))
		require.NotEmpty(t, result.Provenance.RequestID)
	})

	t.Run("ExhaustedRetriesReportRateLimited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		g := newTestGateway(t, "throttled")
		result := g.Query(context.Background(), Request{API: "throttled", Target: srv.URL})

		require.False(t, result.Success)
		require.Equal(t, gperrors.KindRateLimited, result.ErrorKind)
		require.Equal(t, http.StatusTooManyRequests, result.StatusCode)
		require.Equal(t, g.MaxRetries+1, result.Attempts)
	})

	t.Run("UpstreamErrorTagged", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		g := newTestGateway(t, "broken")
		result := g.Query(context.Background(), Request{API: "broken", Target: srv.URL})

		require.False(t, result.Success)
		require.Equal(t, gperrors.KindUpstream, result.ErrorKind)
		require.Equal(t, http.StatusInternalServerError, result.StatusCode)
		require.Contains(t, result.Detail, "500")
	})

	t.Run("CacheHitSkipsTransport", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{"cached":"yes"}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "stable")
		req := Request{API: "stable", Target: srv.URL, UseCache: true}

		first := g.Query(context.Background(), req)
		require.True(t, first.Success)
		require.False(t, first.Provenance.FromCache)

		second := g.Query(context.Background(), req)
		require.True(t, second.Success)
		require.True(t, second.Provenance.FromCache)
		require.Equal(t, first.Payload, second.Payload)
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("CacheHitPreservesStatusCode", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":7}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "creator")
		req := Request{API: "creator", Target: srv.URL, UseCache: true}

		first := g.Query(context.Background(), req)
		require.True(t, first.Success)
		require.Equal(t, http.StatusCreated, first.StatusCode)

		second := g.Query(context.Background(), req)
		require.True(t, second.Provenance.FromCache)
		require.Equal(t, http.StatusCreated, second.StatusCode)

		// Same guarantee on the store path once the bounded tier forgets.
		g.Recent.Clear()
		third := g.Query(context.Background(), req)
		require.True(t, third.Provenance.FromCache)
		require.Equal(t, http.StatusCreated, third.StatusCode)
	})

	t.Run("CacheDisabledHitsTransportEachTime", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "fresh")
		req := Request{API: "fresh", Target: srv.URL, UseCache: false}

		g.Query(context.Background(), req)
		g.Query(context.Background(), req)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("PersistentCacheSurvivesBoundedEviction", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{"tier":"store"}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "layered")
		req := Request{API: "layered", Target: srv.URL, UseCache: true}

		g.Query(context.Background(), req)
		g.Recent.Clear()

		result := g.Query(context.Background(), req)
		require.True(t, result.Provenance.FromCache)
		require.NotNil(t, result.Provenance.CacheExpiresAt)
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("CacheReadErrorTreatedAsMiss", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "degraded")
		g.Responses.(*memoryResponseCache).getErr = errors.New("disk on fire")
		g.Recent = cache.NewBounded(1)

		result := g.Query(context.Background(), Request{API: "degraded", Target: srv.URL, UseCache: true})
		require.True(t, result.Success)
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("CacheWriteErrorDoesNotFailRequest", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "lossy")
		store := g.Responses.(*memoryResponseCache)
		store.setErr = errors.New("no space left")

		result := g.Query(context.Background(), Request{API: "lossy", Target: srv.URL, UseCache: true})
		require.True(t, result.Success)
		require.Equal(t, 1, store.setCalls)
	})

	t.Run("UnregisteredAPIFailsWithConfiguration", func(t *testing.T) {
		g := newTestGateway(t)
		result := g.Query(context.Background(), Request{API: "ghost", Target: "https://example.com"})

		require.False(t, result.Success)
		require.Equal(t, gperrors.KindConfiguration, result.ErrorKind)
		require.Zero(t, result.Attempts)
	})

	t.Run("MissingTargetFailsWithConfiguration", func(t *testing.T) {
		g := newTestGateway(t, "any")
		result := g.Query(context.Background(), Request{API: "any"})

		require.False(t, result.Success)
		require.Equal(t, gperrors.KindConfiguration, result.ErrorKind)
	})

	t.Run("ClientTimeoutTagged", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		g := newTestGateway(t, "slow")
		g.MaxRetries = 1
		g.Client = &http.Client{Timeout: 20 * time.Millisecond}

		result := g.Query(context.Background(), Request{API: "slow", Target: srv.URL})
		require.False(t, result.Success)
		require.Equal(t, gperrors.KindTimeout, result.ErrorKind)
		require.Equal(t, 2, result.Attempts)
	})

	t.Run("PreCanceledContextTaggedAsCanceled", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		g := newTestGateway(t, "gone")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := g.Query(ctx, Request{API: "gone", Target: srv.URL})
		require.False(t, result.Success)
		require.Equal(t, gperrors.KindCanceled, result.ErrorKind)
		require.Zero(t, calls.Load())
		require.Zero(t, g.Limiter.InFlight("gone"))
	})

	t.Run("CancellationStopsRetrying", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		g := newTestGateway(t, "aborted")
		g.RetryDelay = time.Hour

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan *core.Result, 1)
		go func() { done <- g.Query(ctx, Request{API: "aborted", Target: srv.URL}) }()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case result := <-done:
			require.False(t, result.Success)
			require.Equal(t, gperrors.KindCanceled, result.ErrorKind)
			require.Equal(t, 1, result.Attempts)
		case <-time.After(2 * time.Second):
			t.Fatal("query did not return after cancellation")
		}
		require.Zero(t, g.Limiter.InFlight("aborted"))
	})

	t.Run("TransformAppliedBeforeCaching", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"raw":1}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "shaped")
		req := Request{
			API:      "shaped",
			Target:   srv.URL,
			UseCache: true,
			Transform: func(raw []byte) ([]byte, error) {
				return []byte(`{"shaped":1}`), nil
			},
		}

		first := g.Query(context.Background(), req)
		require.True(t, first.Success)
		require.JSONEq(t, `{"shaped":1}`, string(first.Payload))

		second := g.Query(context.Background(), req)
		require.True(t, second.Provenance.FromCache)
		require.JSONEq(t, `{"shaped":1}`, string(second.Payload))
	})

	t.Run("TransformFailureDoesNotRetry", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "mangled")
		result := g.Query(context.Background(), Request{
			API:    "mangled",
			Target: srv.URL,
			Transform: func(raw []byte) ([]byte, error) {
				return nil, errors.New("unexpected shape")
			},
		})

		require.False(t, result.Success)
		require.Equal(t, gperrors.KindConfiguration, result.ErrorKind)
		require.Contains(t, result.Detail, "unexpected shape")
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("PostSendsParamsAsJSONBody", func(t *testing.T) {
		var got map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &got))
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "writer")
		result := g.Query(context.Background(), Request{
			API:    "writer",
			Target: srv.URL,
			Method: http.MethodPost,
			Params: map[string]string{"name": "widget"},
		})

		require.True(t, result.Success)
		require.Equal(t, map[string]string{"name": "widget"}, got)
	})

	t.Run("PostNeverServedFromCache", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "mutator")
		req := Request{API: "mutator", Target: srv.URL, Method: http.MethodPost, UseCache: true}

		g.Query(context.Background(), req)
		g.Query(context.Background(), req)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("GetParamsReachQueryString", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "widget", r.URL.Query().Get("name"))
			require.Equal(t, "5", r.URL.Query().Get("limit"))
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "reader")
		result := g.Query(context.Background(), Request{
			API:    "reader",
			Target: srv.URL,
			Params: map[string]string{"name": "widget", "limit": "5"},
		})
		require.True(t, result.Success)
	})

	t.Run("HeadersPassThrough", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "secured")
		result := g.Query(context.Background(), Request{
			API:     "secured",
			Target:  srv.URL,
			Headers: map[string]string{"Authorization": "Bearer token-123"},
		})
		require.True(t, result.Success)
	})

	t.Run("MonitorRecordsOutcomes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("fail") == "1" {
				http.Error(w, "no", http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		g := newTestGateway(t, "watched")
		g.MaxRetries = 0

		g.Query(context.Background(), Request{API: "watched", Target: srv.URL})
		g.Query(context.Background(), Request{API: "watched", Target: srv.URL, Params: map[string]string{"fail": "1"}})

		summary := g.Monitor.Summary()
		require.Equal(t, int64(2), summary.TotalCalls)
		require.Equal(t, int64(1), summary.FailCount)
		require.InDelta(t, 0.5, summary.SuccessRate, 0.001)
	})
}
