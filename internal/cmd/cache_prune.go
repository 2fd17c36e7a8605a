package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatepace/gatepace/internal/core/store"
)

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		deleted, err := db.DeleteCacheEntries(cmd.Context(), store.CacheQuery{ExpiredOnly: true})
		if err != nil {
			return err
		}

		fmt.Printf("pruned %d expired cache entries\n", deleted)
		return nil
	},
}
