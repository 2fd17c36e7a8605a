// Package cmd wires the gatepace CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gatepace/gatepace/internal/config"
	"github.com/gatepace/gatepace/internal/observability"
)

var (
	cfgFile  string
	apisFile string
	verbose  bool

	// Version info set by main package.
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to inject build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "gatepace",
	Short: "Adaptive access layer for external APIs",
	Long: `gatepace fronts external HTTP APIs with per-API adaptive rate limiting,
a persistent response cache, and retry with backoff.

Use the subcommands to query APIs, run the HTTP server, or inspect state.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	defer observability.Sync()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/gatepace/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apisFile, "apis-file", "", "YAML file with additional API registrations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig loads configuration and initializes the CLI logger. Runs
// before any subcommand.
func initConfig() {
	observability.InitCLILogger(verbose)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if verbose {
		observability.Logger().Debug("configuration loaded",
			zap.String("config_file", cfgFile),
			zap.Int("apis", len(cfg.APIs)))
	}
}
