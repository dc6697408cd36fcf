package cli

import (
	"github.com/spf13/cobra"
	"github.com/upb/llm-cost-guard/repositories/postgres"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize the ledger database schema",
	Long: `Creates the append-only usage_records table and its indexes.
Safe to run repeatedly; existing data is never touched.`,
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

		db, err := postgres.NewDB(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.InitSchema(cmd.Context()); err != nil {
			return err
		}

		passColor.Println("ledger schema initialized")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
