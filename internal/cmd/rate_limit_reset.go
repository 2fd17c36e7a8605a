package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatepace/gatepace/internal/core/store"
)

var (
	rateLimitResetAll    bool
	rateLimitResetAPI    string
	rateLimitResetPrefix string
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset persisted adaptive pacing state",
	Long:  "Delete persisted pacing counters so the next run starts from the configured rates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := store.LimiterQuery{
			All:    rateLimitResetAll,
			API:    strings.TrimSpace(rateLimitResetAPI),
			Prefix: strings.TrimSpace(rateLimitResetPrefix),
		}
		if !query.All && query.API == "" && query.Prefix == "" {
			return errors.New("one of --all, --api, or --prefix is required")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		deleted, err := db.ResetLimiterStates(cmd.Context(), query)
		if err != nil {
			return err
		}

		fmt.Printf("reset pacing state for %d APIs\n", deleted)
		return nil
	},
}

func init() {
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset all APIs")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetAPI, "api", "", "Reset one API")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Reset APIs with matching prefix")
}
