package server

import "github.com/gatepace/gatepace/internal/server/handlers"

func (s *Server) registerRoutes(deps Deps) {
	health := deps.Health
	if health == nil {
		health = handlers.NewHealth(deps.Version.Version)
	}

	s.router.Get("/health", health.Handler)
	s.router.Get("/health/live", health.Liveness)
	s.router.Get("/health/ready", health.Readiness)

	s.router.Get("/version", handlers.Version(deps.Version))
	s.router.Get("/stats", handlers.Stats(deps.Monitor, deps.Recent))
	s.router.Get("/apis", handlers.APIs(deps.Limiter))
	s.router.Handle("/metrics", deps.Metrics.Handler())

	s.router.Post("/query", handlers.Query(deps.Gateway))
}
