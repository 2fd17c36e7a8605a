package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatepace/gatepace/internal/config"
	"github.com/gatepace/gatepace/internal/output"
)

var apisOutput string

var apisCmd = &cobra.Command{
	Use:   "apis",
	Short: "List registered APIs and their pacing configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(apisOutput)
		if err != nil {
			return err
		}

		cfg := config.GetConfig()
		if cfg == nil {
			return errors.New("config not loaded")
		}

		limiter, err := buildLimiter(cfg)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatRegistrations(limiter.Registrations())
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apisCmd)
	apisCmd.Flags().StringVar(&apisOutput, "output", string(output.FormatTable), "Output format: table, json, markdown")
}
