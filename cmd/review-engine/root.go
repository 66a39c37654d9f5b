package main

import (
	"github.com/reviewdesk/review-engine/internal/config"
	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:          "review-engine",
	Short:        "Review allocation and escalation engine",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rebalanceCmd)
}

// setup reads the configuration and installs the global zap logger. The
// returned func restores the previous logger and flushes the new one.
func setup() (*config.Config, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
	undo := zap.ReplaceGlobals(logger)

	return cfg, func() {
		_ = logger.Sync()
		undo()
	}, nil
}

func openStore(cfg *config.Config) (*gorm.DB, store.Store, error) {
	zap.S().Info("initializing data store")
	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, store.NewStore(db), nil
}
