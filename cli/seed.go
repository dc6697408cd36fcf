package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/llm-cost-guard/app"
	"github.com/upb/llm-cost-guard/demo"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the ledger with deterministic demo history",
	Long: `Appends a deterministic set of usage records so baselines start
warm. Intended for demos and local development; the ledger is
append-only, so repeated runs add history rather than replacing it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		deps, err := app.NewDependencies(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = deps.Close() }()

		count, err := demo.Seed(cmd.Context(), deps.Ledger, logger)
		if err != nil {
			return err
		}

		passColor.Println(fmt.Sprintf("seeded %d demo usage records", count))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
