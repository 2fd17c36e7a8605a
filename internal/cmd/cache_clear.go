package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatepace/gatepace/internal/core/store"
)

var cacheClearAPI string

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached responses",
	Long:  "Delete cached responses for one API, or all of them with --api omitted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.CacheQuery{API: strings.TrimSpace(cacheClearAPI)}
		if query.API == "" {
			query.All = true
		}

		deleted, err := db.DeleteCacheEntries(cmd.Context(), query)
		if err != nil {
			return err
		}

		fmt.Printf("cleared %d cache entries\n", deleted)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearAPI, "api", "", "Clear entries for one API only")
}
