package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gatepace/gatepace/internal/config"
	"github.com/gatepace/gatepace/internal/metrics"
	"github.com/gatepace/gatepace/internal/observability"
	"github.com/gatepace/gatepace/internal/server"
	"github.com/gatepace/gatepace/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Ctrl+C (SIGINT) or SIGTERM drains in-flight requests, persists the
limiter state, and flushes logs before exiting.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "127.0.0.1", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8480, "server port")
}

// serverAddress resolves the listener address: config file and environment
// first, command-line flags when explicitly set.
func serverAddress(cmd *cobra.Command, cfg *config.Config) (string, int) {
	host := cfg.Server.Host
	port := cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host = serverHost
	}
	if cmd.Flags().Changed("port") {
		port = serverPort
	}
	if host == "" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = 8480
	}
	return host, port
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	if cfg == nil {
		return errors.New("config not loaded")
	}

	observability.InitServerLogger("gatepace", cfg.Logging.Level)
	logger := observability.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup

	limiter, err := buildLimiter(cfg)
	if err != nil {
		return err
	}
	restoreLimiterState(ctx, db, limiter)

	collector := metrics.NewCollector()
	g := buildGateway(cfg, db, limiter, collector)

	health := handlers.NewHealth(versionInfo.Version)
	health.Register("store", handlers.CheckerFunc(func(ctx context.Context) error {
		return db.DB.PingContext(ctx)
	}))

	host, port := serverAddress(cmd, cfg)

	srv := server.New(server.Config{
		Host:         host,
		Port:         port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, server.Deps{
		Gateway: g,
		Limiter: limiter,
		Monitor: g.Monitor,
		Recent:  g.Recent,
		Metrics: collector,
		Health:  health,
		Version: handlers.VersionInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		},
		Logger: logger,
	})

	logger.Info("initializing server",
		zap.String("version", versionInfo.Version),
		zap.String("host", host),
		zap.Int("port", port),
		zap.Int("apis", len(limiter.Registrations())))

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Limiter state outlives the process so the next run resumes pacing
	// where this one left off.
	persistLimiterState(shutdownCtx, db, limiter)

	logger.Info("server stopped")
	return nil
}
