package main

import (
	"fmt"

	"github.com/reviewdesk/review-engine/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusOnly bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer teardown()

		db, s, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}
		defer s.Close()

		if cfg.Database.Type != "pgsql" {
			zap.S().Infow("running auto migration", "type", cfg.Database.Type)
			return s.InitialMigration()
		}

		if statusOnly {
			return migrations.Status(db, cfg)
		}

		if err := migrations.MigrateStore(db, cfg); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		zap.S().Info("db migrated")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&statusOnly, "status", false, "Print the migration status without applying anything")
}
