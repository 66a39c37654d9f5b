package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/events"
	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"github.com/reviewdesk/review-engine/pkg/log"
	"github.com/reviewdesk/review-engine/pkg/metrics"
	"github.com/thoas/go-funk"
)

const (
	rebalanceColdStart = "cold_start"
	rebalanceStalled   = "stalled"
	rebalanceSkipped   = "skipped"
)

// Assignment asks the rebalancer to hand a submission to a new reviewer.
type Assignment struct {
	SubmissionID        uuid.UUID `json:"submissionId" validate:"required"`
	CandidateReviewerID string    `json:"candidateReviewerId" validate:"required"`
}

type RebalanceSummary struct {
	Message              string `json:"message"`
	ExpertsInvolved      int    `json:"expertsInvolved"`
	SubmissionsProcessed int    `json:"submissionsProcessed"`
}

// WorkloadRebalancer substitutes reviewers that never started or stalled mid-chain.
type WorkloadRebalancer struct {
	store       store.Store
	ledger      *ReputationLedger
	notifier    Notifier
	retainTurns bool
	logger      *log.StructuredLogger
}

// NewWorkloadRebalancer returns a rebalancer. When retainTurns is set the
// stalled turn stays in the history as "reassigned" instead of being replaced.
func NewWorkloadRebalancer(s store.Store, ledger *ReputationLedger, notifier Notifier, retainTurns bool) *WorkloadRebalancer {
	return &WorkloadRebalancer{
		store:       s,
		ledger:      ledger,
		notifier:    notifierOrNoop(notifier),
		retainTurns: retainTurns,
		logger:      log.NewDebugLogger("workload_rebalancer"),
	}
}

// Rebalance applies every assignment in its own transaction. A failing
// assignment is logged and does not stop the others.
func (r *WorkloadRebalancer) Rebalance(ctx context.Context, assignments []Assignment) (*RebalanceSummary, error) {
	tracer := r.logger.WithContext(ctx).
		Operation("rebalance").
		WithInt("assignments", len(assignments)).
		Build()

	experts := []string{}
	processed := 0
	for _, a := range assignments {
		kind, involved, err := r.apply(ctx, a)
		if err != nil {
			metrics.IncreaseRebalanceAssignmentsMetric(kind, "failed")
			tracer.Step("assignment_failed").
				WithUUID("submission_id", a.SubmissionID).
				WithString("candidate_id", a.CandidateReviewerID).
				WithString("error", err.Error()).
				Log()
			continue
		}

		metrics.IncreaseRebalanceAssignmentsMetric(kind, "succeeded")
		if kind == rebalanceSkipped {
			continue
		}
		processed++
		for _, id := range involved {
			if !funk.ContainsString(experts, id) {
				experts = append(experts, id)
			}
		}
	}

	summary := &RebalanceSummary{
		Message:              fmt.Sprintf("rebalanced %d of %d submissions", processed, len(assignments)),
		ExpertsInvolved:      len(experts),
		SubmissionsProcessed: processed,
	}
	tracer.Success().
		WithInt("processed", processed).
		WithInt("experts_involved", len(experts)).
		Log()
	return summary, nil
}

func (r *WorkloadRebalancer) apply(ctx context.Context, a Assignment) (string, []string, error) {
	var (
		kind          = rebalanceSkipped
		involved      []string
		notifications []events.Notification
	)

	err := withTransaction(ctx, r.store, func(ctx context.Context) error {
		sub, err := r.store.Submission().Get(ctx, a.SubmissionID)
		if err != nil {
			return storeErr(err, NewErrSubmissionNotFound(a.SubmissionID), submissionResource, a.SubmissionID)
		}

		if len(sub.History) == 0 {
			kind = rebalanceColdStart
			involved, notifications, err = r.coldStart(ctx, sub, a.CandidateReviewerID)
			return err
		}

		if sub.Frontier().Status != model.HistoryInReview {
			return nil
		}

		kind = rebalanceStalled
		involved, notifications, err = r.stalled(ctx, sub, a.CandidateReviewerID)
		return err
	})
	if err != nil {
		return kind, nil, err
	}

	notifyAll(ctx, r.notifier, notifications)
	return kind, involved, nil
}

// coldStart replaces the queue of a submission nobody engaged with.
func (r *WorkloadRebalancer) coldStart(ctx context.Context, sub *model.Submission, candidate string) ([]string, []events.Notification, error) {
	involved := []string{candidate}

	if head, ok := sub.QueueHead(); ok {
		if head.ReviewerID == candidate {
			return nil, nil, NewErrInvalidState("candidate %s already heads submission %s", candidate, sub.ID)
		}
		if err := r.ledger.Adjust(ctx, head.ReviewerID, false); err != nil {
			return nil, nil, err
		}
		involved = append(involved, head.ReviewerID)
	}

	sub.Queue = model.NewQueue([]string{candidate}, store.Now())
	if err := r.store.Submission().Update(ctx, sub); err != nil {
		return nil, nil, storeErr(err, NewErrSubmissionNotFound(sub.ID), submissionResource, sub.ID)
	}

	if err := r.ledger.Adjust(ctx, candidate, true); err != nil {
		return nil, nil, err
	}

	return involved, []events.Notification{{
		ReviewerID: candidate,
		Title:      "Answer Reassigned",
		Message:    "A question has been reassigned to you",
		EntityID:   sub.QuestionID.String(),
		Type:       events.NotificationAnswerReassigned,
	}}, nil
}

// stalled hands the open turn of the frontier reviewer to the candidate.
// The queue keeps everyone before the stalled reviewer.
func (r *WorkloadRebalancer) stalled(ctx context.Context, sub *model.Submission, candidate string) ([]string, []events.Notification, error) {
	frontier := sub.Frontier()
	stalledID := frontier.ReviewerID
	if stalledID == candidate {
		return nil, nil, NewErrInvalidState("candidate %s is the stalled reviewer of submission %s", candidate, sub.ID)
	}

	position := sub.QueuePosition(stalledID)
	if position < 0 {
		return nil, nil, NewErrInvalidState("stalled reviewer %s is not queued for submission %s", stalledID, sub.ID)
	}

	now := store.Now()
	queue := make([]model.QueueEntry, 0, position+1)
	queue = append(queue, sub.Queue[:position]...)
	sub.Queue = append(queue, model.QueueEntry{ReviewerID: candidate, AssignedAt: now})

	if err := r.store.Submission().Update(ctx, sub); err != nil {
		return nil, nil, storeErr(err, NewErrSubmissionNotFound(sub.ID), submissionResource, sub.ID)
	}

	if r.retainTurns {
		frontier.Status = model.HistoryReassigned
		frontier.UpdatedAt = now
		if err := r.store.Submission().UpdateHistory(ctx, frontier); err != nil {
			return nil, nil, classify(err)
		}
		if err := r.store.Submission().AppendHistory(ctx, sub, model.HistoryEntry{
			ReviewerID: candidate,
			Status:     model.HistoryInReview,
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return nil, nil, storeErr(err, NewErrSubmissionNotFound(sub.ID), submissionResource, sub.ID)
		}
	} else {
		frontier.ReviewerID = candidate
		frontier.AnswerID = nil
		frontier.RejectionReason = nil
		frontier.Status = model.HistoryInReview
		frontier.CreatedAt = now
		frontier.UpdatedAt = now
		if err := r.store.Submission().UpdateHistory(ctx, frontier); err != nil {
			return nil, nil, classify(err)
		}
	}

	if err := r.ledger.Adjust(ctx, stalledID, false); err != nil {
		return nil, nil, err
	}
	if err := r.ledger.Adjust(ctx, candidate, true); err != nil {
		return nil, nil, err
	}

	return []string{stalledID, candidate}, []events.Notification{{
		ReviewerID: candidate,
		Title:      "Peer Review Assigned",
		Message:    "A peer review has been assigned to you",
		EntityID:   sub.QuestionID.String(),
		Type:       events.NotificationPeerReviewAssigned,
	}}, nil
}
