package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatepace/gatepace/internal/core/store"
	"github.com/gatepace/gatepace/internal/output"
)

var (
	rateLimitListOutput string
	rateLimitListOut    string
	rateLimitListOutDir string
	rateLimitListAll    bool
	rateLimitListAPI    string
	rateLimitListPrefix string
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted adaptive pacing state",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(rateLimitListOutput)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.LimiterQuery{
			All:    rateLimitListAll,
			API:    strings.TrimSpace(rateLimitListAPI),
			Prefix: strings.TrimSpace(rateLimitListPrefix),
		}
		if !query.All && query.API == "" && query.Prefix == "" {
			query.All = true
		}

		entries, err := db.ListLimiterStates(cmd.Context(), query)
		if err != nil {
			return err
		}

		sink, err := resolveSink(rateLimitListOut, rateLimitListOutDir, "rate-limit.list", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatLimiterStates(entries)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	rateLimitListCmd.Flags().StringVar(&rateLimitListOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	rateLimitListCmd.Flags().StringVar(&rateLimitListOut, "out", "", "Write output to a file (default stdout)")
	rateLimitListCmd.Flags().StringVar(&rateLimitListOutDir, "out-dir", "", "Write output to a directory")
	rateLimitListCmd.Flags().BoolVar(&rateLimitListAll, "all", false, "List all APIs")
	rateLimitListCmd.Flags().StringVar(&rateLimitListAPI, "api", "", "List one API")
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "List APIs with matching prefix")
}
