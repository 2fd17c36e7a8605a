// Package observability constructs the application loggers. CLI commands
// get a human-readable console logger; serve mode gets structured JSON.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// CLILogger is used by CLI commands.
	CLILogger *zap.Logger

	// ServerLogger is used by serve mode.
	ServerLogger *zap.Logger
)

// InitCLILogger initializes the console logger for CLI commands.
func InitCLILogger(verbose bool) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize CLI logger: %v\n", err)
		os.Exit(1)
	}

	CLILogger = logger
}

// InitServerLogger initializes the structured JSON logger for serve mode.
func InitServerLogger(service string, level string) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(parseLogLevel(level))
	cfg.InitialFields = map[string]any{"service": service}

	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize server logger: %v\n", err)
		os.Exit(1)
	}

	ServerLogger = logger
}

// Logger returns the active logger, preferring the server logger, never nil.
func Logger() *zap.Logger {
	switch {
	case ServerLogger != nil:
		return ServerLogger
	case CLILogger != nil:
		return CLILogger
	default:
		return zap.NewNop()
	}
}

// Sync flushes any buffered log entries. Called at shutdown.
func Sync() {
	if CLILogger != nil {
		_ = CLILogger.Sync()
	}
	if ServerLogger != nil {
		_ = ServerLogger.Sync()
	}
}

func parseLogLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
