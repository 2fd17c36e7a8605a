package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatepace/gatepace/internal/core/store"
	"github.com/gatepace/gatepace/internal/output"
)

var (
	cacheListOutput  string
	cacheListOut     string
	cacheListOutDir  string
	cacheListAPI     string
	cacheListExpired bool
)

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(cacheListOutput)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.CacheQuery{
			API:         strings.TrimSpace(cacheListAPI),
			ExpiredOnly: cacheListExpired,
		}
		if query.API == "" && !query.ExpiredOnly {
			query.All = true
		}

		entries, err := db.ListCacheEntries(cmd.Context(), query)
		if err != nil {
			return err
		}

		sink, err := resolveSink(cacheListOut, cacheListOutDir, "cache.list", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatCacheEntries(entries)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	cacheListCmd.Flags().StringVar(&cacheListOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	cacheListCmd.Flags().StringVar(&cacheListOut, "out", "", "Write output to a file (default stdout)")
	cacheListCmd.Flags().StringVar(&cacheListOutDir, "out-dir", "", "Write output to a directory")
	cacheListCmd.Flags().StringVar(&cacheListAPI, "api", "", "List entries for one API")
	cacheListCmd.Flags().BoolVar(&cacheListExpired, "expired", false, "List only expired entries")
}
