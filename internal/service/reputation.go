package service

import (
	"context"

	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/pkg/log"
	"github.com/reviewdesk/review-engine/pkg/metrics"
)

// ReputationLedger applies blind increments and decrements to reviewer reputation.
type ReputationLedger struct {
	store  store.Store
	delta  int64
	logger *log.StructuredLogger
}

func NewReputationLedger(s store.Store, delta int64) *ReputationLedger {
	if delta <= 0 {
		delta = 1
	}
	return &ReputationLedger{
		store:  s,
		delta:  delta,
		logger: log.NewDebugLogger("reputation_ledger"),
	}
}

func (l *ReputationLedger) Delta() int64 {
	return l.delta
}

// Adjust increments or decrements the reviewer's reputation by the configured delta.
func (l *ReputationLedger) Adjust(ctx context.Context, reviewerID string, increase bool) error {
	tracer := l.logger.WithContext(ctx).
		Operation("adjust_reputation").
		WithString("reviewer_id", reviewerID).
		Build()

	delta := l.delta
	if !increase {
		delta = -delta
	}

	if err := l.store.Reviewer().AdjustReputation(ctx, reviewerID, delta); err != nil {
		tracer.Error(err).Log()
		if err == store.ErrRecordNotFound {
			return NewErrReviewerNotFound(reviewerID)
		}
		return classify(err)
	}

	metrics.IncreaseReputationAdjustmentsMetric(increase)
	tracer.Success().WithInt64("delta", delta).Log()
	return nil
}
