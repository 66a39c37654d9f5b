package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reviewdesk/review-engine/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Run a single stall detection and rebalance pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer teardown()

		_, s, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		producer, err := newProducer(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = producer.Close() }()

		matcher := service.NewExpertMatcher(s)
		ledger := service.NewReputationLedger(s, cfg.Allocation.ReputationDelta)
		scheduler := service.NewRebalanceScheduler(
			service.NewStallDetector(s, matcher, cfg.Rebalance.StallThreshold, cfg.Rebalance.BatchSize),
			service.NewWorkloadRebalancer(s, ledger, producer, cfg.Rebalance.RetainStalledTurns),
			cfg.Rebalance.Interval,
		)

		summary, err := scheduler.RunOnce(ctx)
		if err != nil {
			return err
		}
		zap.S().Infow("rebalance pass finished", "submissions", summary.SubmissionsProcessed, "experts", summary.ExpertsInvolved, "message", summary.Message)
		return nil
	},
}
