package service

import (
	"context"
	"time"

	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"github.com/reviewdesk/review-engine/pkg/log"
)

// StallDetector finds submissions whose active reviewer is overdue and picks a
// replacement for each of them.
type StallDetector struct {
	store     store.Store
	matcher   *ExpertMatcher
	threshold time.Duration
	batchSize int
	now       func() time.Time
	logger    *log.StructuredLogger
}

func NewStallDetector(s store.Store, matcher *ExpertMatcher, threshold time.Duration, batchSize int) *StallDetector {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &StallDetector{
		store:     s,
		matcher:   matcher,
		threshold: threshold,
		batchSize: batchSize,
		now:       store.Now,
		logger:    log.NewDebugLogger("stall_detector"),
	}
}

// WithClock replaces the time source used to compute the stall cutoff.
func (d *StallDetector) WithClock(now func() time.Time) *StallDetector {
	d.now = now
	return d
}

// Detect returns one assignment per stalled submission that has a replacement available.
func (d *StallDetector) Detect(ctx context.Context) ([]Assignment, error) {
	cutoff := d.now().Add(-d.threshold)
	tracer := d.logger.WithContext(ctx).
		Operation("detect_stalls").
		WithParam("cutoff", cutoff).
		Build()

	subs, err := d.store.Submission().List(ctx,
		store.NewSubmissionQueryFilter().
			ByQuestionStatus(model.QuestionStatusOpen, model.QuestionStatusInReview).
			UpdatedBefore(cutoff),
		store.NewSubmissionQueryOptions().
			WithSortOrder(store.SortByUpdatedTime).
			WithLimit(d.batchSize))
	if err != nil {
		tracer.Error(err).Log()
		return nil, classify(err)
	}

	stalled := make([]model.Submission, 0, len(subs))
	questionIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		if isStalled(&sub, cutoff) {
			stalled = append(stalled, sub)
			questionIDs = append(questionIDs, sub.QuestionID.String())
		}
	}
	if len(stalled) == 0 {
		tracer.Success().WithInt("assignments", 0).Log()
		return []Assignment{}, nil
	}

	questions, err := d.store.Question().List(ctx, store.NewQuestionQueryFilter().ByID(questionIDs...))
	if err != nil {
		tracer.Error(err).Log()
		return nil, classify(err)
	}
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID.String()] = q
	}

	assignments := make([]Assignment, 0, len(stalled))
	for _, sub := range stalled {
		question, found := byID[sub.QuestionID.String()]
		if !found {
			continue
		}

		candidates, err := d.matcher.SelectCandidates(ctx, question.Topics(), sub.Reviewers()...)
		if err != nil {
			tracer.Error(err).Log()
			return nil, err
		}
		if len(candidates) == 0 {
			tracer.Step("no_replacement").WithUUID("submission_id", sub.ID).Log()
			continue
		}

		assignments = append(assignments, Assignment{
			SubmissionID:        sub.ID,
			CandidateReviewerID: candidates[0],
		})
	}

	tracer.Success().WithInt("assignments", len(assignments)).Log()
	return assignments, nil
}

func isStalled(sub *model.Submission, cutoff time.Time) bool {
	switch sub.State() {
	case model.SubmissionUnstarted:
		head, _ := sub.QueueHead()
		return head.AssignedAt.Before(cutoff)
	case model.SubmissionInReview:
		return sub.Frontier().UpdatedAt.Before(cutoff)
	}
	return false
}
