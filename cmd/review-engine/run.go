package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/reviewdesk/review-engine/internal/api_server"
	"github.com/reviewdesk/review-engine/internal/config"
	"github.com/reviewdesk/review-engine/internal/embedding"
	"github.com/reviewdesk/review-engine/internal/events"
	handlers "github.com/reviewdesk/review-engine/internal/handlers/v1"
	"github.com/reviewdesk/review-engine/internal/jobs"
	"github.com/reviewdesk/review-engine/internal/service"
	"github.com/reviewdesk/review-engine/pkg/metrics"
	"github.com/reviewdesk/review-engine/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the review engine api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, teardown, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer teardown()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		db, s, err := openStore(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}
		defer s.Close()

		if cfg.Database.Type == "pgsql" {
			err = migrations.MigrateStore(db, cfg)
		} else {
			err = s.InitialMigration()
		}
		if err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		producer, err := newProducer(cfg)
		if err != nil {
			zap.S().Fatalw("creating event producer", "error", err)
		}
		defer func() { _ = producer.Close() }()

		matcher := service.NewExpertMatcher(s)
		ledger := service.NewReputationLedger(s, cfg.Allocation.ReputationDelta)
		submissionSrv := service.NewSubmissionService(s, matcher, ledger, producer, cfg.Allocation.InitialQueueSize)
		rebalancer := service.NewWorkloadRebalancer(s, ledger, producer, cfg.Rebalance.RetainStalledTurns)
		scheduler := service.NewRebalanceScheduler(
			service.NewStallDetector(s, matcher, cfg.Rebalance.StallThreshold, cfg.Rebalance.BatchSize),
			rebalancer,
			cfg.Rebalance.Interval,
		)
		if cfg.Rebalance.Enabled {
			go scheduler.Start(ctx)
		}

		registry, err := jobs.NewMemoryRegistry(jobs.RegistryOptions{
			NodeID:      cfg.Jobs.NodeID,
			MaxLogLines: cfg.Jobs.MaxLogLines,
			Retention:   cfg.Jobs.Retention,
			MaxRetained: cfg.Jobs.MaxRetained,
		})
		if err != nil {
			zap.S().Fatalw("creating job registry", "error", err)
		}
		dispatcher := jobs.NewDispatcher(
			jobs.NewAllocationWorker(s, submissionSrv, embedding.New(cfg)),
			registry,
			jobs.DispatcherOptions{MinWorkers: cfg.Allocation.MinWorkers, MaxWorkers: cfg.Allocation.MaxWorkers},
		).WithBaseContext(ctx)

		metrics.RegisterQuestionStatsCollector(s)

		h := handlers.NewServiceHandler(
			submissionSrv,
			service.NewRerouteService(s, producer),
			rebalancer,
			scheduler,
			dispatcher,
		)

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, h, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("failed to run metrics server", "error", err)
			}
		}()

		<-ctx.Done()
		return nil
	},
}

func newProducer(cfg *config.Config) (*events.EventProducer, error) {
	var writer events.Writer = &events.StdoutWriter{}
	if cfg.Notification.Writer == "redis" {
		w, err := events.NewRedisStreamWriterFromURL(cfg.Notification.RedisURL, cfg.Notification.Stream)
		if err != nil {
			return nil, err
		}
		writer = w
	}
	return events.NewEventProducer(writer), nil
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
