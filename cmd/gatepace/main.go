package main

import (
	"os"

	"github.com/gatepace/gatepace/internal/cmd"
)

// Version information set via ldflags during build.
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2026-08-30"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		// Cobra already printed the error.
		os.Exit(1)
	}
}
