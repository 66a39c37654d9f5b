package service

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/reviewdesk/review-engine/pkg/log"
)

// RebalanceScheduler runs stall detection followed by a rebalance on a jittered interval.
type RebalanceScheduler struct {
	detector   *StallDetector
	rebalancer *WorkloadRebalancer
	interval   time.Duration
	logger     *log.StructuredLogger
}

func NewRebalanceScheduler(detector *StallDetector, rebalancer *WorkloadRebalancer, interval time.Duration) *RebalanceScheduler {
	return &RebalanceScheduler{
		detector:   detector,
		rebalancer: rebalancer,
		interval:   interval,
		logger:     log.NewDebugLogger("rebalance_scheduler"),
	}
}

// Start blocks until ctx is cancelled.
func (s *RebalanceScheduler) Start(ctx context.Context) {
	ticker := jitterbug.New(s.interval, &jitterbug.Norm{Stdev: s.interval / 10, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}

// RunOnce detects stalled submissions and rebalances them.
func (s *RebalanceScheduler) RunOnce(ctx context.Context) (*RebalanceSummary, error) {
	tracer := s.logger.WithContext(ctx).Operation("scheduled_rebalance").Build()

	assignments, err := s.detector.Detect(ctx)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	if len(assignments) == 0 {
		tracer.Success().WithInt("processed", 0).Log()
		return &RebalanceSummary{Message: "no stalled submissions"}, nil
	}

	summary, err := s.rebalancer.Rebalance(ctx, assignments)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().WithInt("processed", summary.SubmissionsProcessed).Log()
	return summary, nil
}
