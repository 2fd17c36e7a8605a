// Package server exposes the gateway over HTTP in serve mode.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gatepace/gatepace/internal/core/cache"
	"github.com/gatepace/gatepace/internal/core/gateway"
	"github.com/gatepace/gatepace/internal/core/monitor"
	"github.com/gatepace/gatepace/internal/core/ratelimit"
	"github.com/gatepace/gatepace/internal/metrics"
	"github.com/gatepace/gatepace/internal/server/handlers"
	servermw "github.com/gatepace/gatepace/internal/server/middleware"
)

// Config holds the listener settings for serve mode. Zero-valued timeouts
// fall back to the package defaults.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// Deps bundles everything the HTTP surface exposes.
type Deps struct {
	Gateway *gateway.Gateway
	Limiter *ratelimit.Limiter
	Monitor *monitor.Monitor
	Recent  *cache.Bounded
	Metrics *metrics.Collector
	Health  *handlers.Health
	Version handlers.VersionInfo
	Logger  *zap.Logger
}

// Server is the HTTP server wrapping a gateway.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    Config
	logger *zap.Logger
}

// New assembles the router, middleware chain, and routes.
func New(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)

	// RequestID first for correlation, then metrics and logging so they
	// observe every request, recovery outermost around the handlers.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics(deps.Metrics))
	r.Use(servermw.RequestLogger(logger))
	r.Use(servermw.Recovery(logger))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	s := &Server{
		router: r,
		cfg:    cfg,
		logger: logger,
	}
	s.registerRoutes(deps)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("host", s.cfg.Host),
		zap.Int("port", s.cfg.Port))

	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.cfg.Port
}
