package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/events"
	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"github.com/reviewdesk/review-engine/pkg/log"
	"github.com/reviewdesk/review-engine/pkg/metrics"
)

const submissionResource = "submission"

type Decision string

const (
	DecisionInReview Decision = "in-review"
	DecisionApprove  Decision = "approved"
	DecisionReject   Decision = "rejected"
)

func (d Decision) historyStatus() (model.HistoryStatus, error) {
	switch d {
	case DecisionInReview:
		return model.HistoryInReview, nil
	case DecisionApprove:
		return model.HistoryApproved, nil
	case DecisionReject:
		return model.HistoryRejected, nil
	}
	return "", NewErrInvalidState("unknown decision %q", d)
}

type AdvanceRequest struct {
	ReviewerID      string
	AnswerID        *uuid.UUID
	Decision        Decision
	RejectionReason *string
}

type SubmitAnswerRequest struct {
	AuthorID        string
	Text            string
	Sources         []string
	IsFinal         bool
	SimilarityScore *float64
	// Decision recorded for the author's turn, in-review when empty.
	Decision Decision
}

// SubmissionService owns the review queue and history of every question.
type SubmissionService struct {
	store     store.Store
	matcher   *ExpertMatcher
	ledger    *ReputationLedger
	notifier  Notifier
	queueSize int
	logger    *log.StructuredLogger
}

func NewSubmissionService(s store.Store, matcher *ExpertMatcher, ledger *ReputationLedger, notifier Notifier, queueSize int) *SubmissionService {
	if queueSize <= 0 {
		queueSize = 3
	}
	return &SubmissionService{
		store:     s,
		matcher:   matcher,
		ledger:    ledger,
		notifier:  notifierOrNoop(notifier),
		queueSize: queueSize,
		logger:    log.NewDebugLogger("submission_service"),
	}
}

func (s *SubmissionService) Get(ctx context.Context, questionID uuid.UUID) (*model.Submission, error) {
	_, sub, err := s.load(ctx, questionID)
	return sub, err
}

// Initialize builds the first queue of a question from the best ranked experts
// and credits the head of the queue.
func (s *SubmissionService) Initialize(ctx context.Context, questionID uuid.UUID) (*model.Submission, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("initialize_submission").
		WithUUID("question_id", questionID).
		Build()

	var (
		created       *model.Submission
		notifications []events.Notification
	)
	err := withTransaction(ctx, s.store, func(ctx context.Context) error {
		question, err := s.store.Question().Get(ctx, questionID)
		if err != nil {
			return storeErr(err, NewErrQuestionNotFound(questionID), "question", questionID)
		}

		if _, err := s.store.Submission().GetByQuestionID(ctx, questionID); err == nil {
			return NewErrInvalidState("question %s is already allocated", questionID)
		} else if !errors.Is(err, store.ErrRecordNotFound) {
			return classify(err)
		}

		candidates, err := s.matcher.SelectCandidates(ctx, question.Topics())
		if err != nil {
			return err
		}
		if len(candidates) > s.queueSize {
			candidates = candidates[:s.queueSize]
		}
		tracer.Step("candidates_selected").WithParam("candidates", candidates).Log()

		created, err = s.store.Submission().Create(ctx, model.Submission{
			QuestionID: questionID,
			Queue:      model.NewQueue(candidates, store.Now()),
		})
		if err != nil {
			return storeErr(err, NewErrQuestionNotFound(questionID), submissionResource, questionID)
		}

		if len(candidates) == 0 {
			return nil
		}

		if err := s.ledger.Adjust(ctx, candidates[0], true); err != nil {
			return err
		}
		notifications = append(notifications, events.Notification{
			ReviewerID: candidates[0],
			Title:      "Answer Creation Assigned",
			Message:    "A new question has been assigned to you",
			EntityID:   questionID.String(),
			Type:       events.NotificationAnswerCreation,
		})
		return nil
	})
	if err != nil {
		metrics.IncreaseAllocationsTotalMetric("failed")
		tracer.Error(err).Log()
		return nil, err
	}

	notifyAll(ctx, s.notifier, notifications)
	metrics.IncreaseAllocationsTotalMetric("succeeded")
	tracer.Success().WithInt("queue_size", len(created.Queue)).Log()
	return created, nil
}

// Allocate appends reviewers to the tail of the queue. Duplicates are not filtered.
func (s *SubmissionService) Allocate(ctx context.Context, questionID uuid.UUID, reviewerIDs []string) (*model.Submission, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("allocate_reviewers").
		WithUUID("question_id", questionID).
		WithParam("reviewers", reviewerIDs).
		Build()

	var (
		sub           *model.Submission
		notifications []events.Notification
	)
	err := withTransaction(ctx, s.store, func(ctx context.Context) error {
		var err error
		_, sub, err = s.load(ctx, questionID)
		if err != nil {
			return err
		}

		known, err := s.store.Reviewer().GetMany(ctx, reviewerIDs)
		if err != nil {
			return classify(err)
		}
		for _, id := range reviewerIDs {
			if _, found := known[id]; !found {
				return NewErrReviewerNotFound(id)
			}
		}

		wasEmpty := len(sub.Queue) == 0 && len(sub.History) == 0
		sub.Queue = append(sub.Queue, model.NewQueue(reviewerIDs, store.Now())...)
		if err := s.store.Submission().Update(ctx, sub); err != nil {
			return storeErr(err, NewErrMissingSubmissionState(questionID), submissionResource, sub.ID)
		}

		if wasEmpty && len(reviewerIDs) > 0 {
			notifications = append(notifications, events.Notification{
				ReviewerID: reviewerIDs[0],
				Title:      "Answer Creation Assigned",
				Message:    "A new question has been assigned to you",
				EntityID:   questionID.String(),
				Type:       events.NotificationAnswerCreation,
			})
		}
		return nil
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	notifyAll(ctx, s.notifier, notifications)
	tracer.Success().WithInt("queue_size", len(sub.Queue)).Log()
	return sub, nil
}

// Advance records a reviewer turn. A decision by the reviewer owning the open
// frontier closes that turn; any other decision starts a new one.
func (s *SubmissionService) Advance(ctx context.Context, questionID uuid.UUID, req AdvanceRequest) (*model.Submission, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("advance_submission").
		WithUUID("question_id", questionID).
		WithString("reviewer_id", req.ReviewerID).
		WithString("decision", string(req.Decision)).
		Build()

	var sub *model.Submission
	err := withTransaction(ctx, s.store, func(ctx context.Context) error {
		question, loaded, err := s.load(ctx, questionID)
		if err != nil {
			return err
		}
		sub = loaded
		return s.advance(ctx, question, sub, req)
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().WithString("state", string(sub.State())).Log()
	return sub, nil
}

// SubmitAnswer stores a new answer iteration and records the author's turn.
func (s *SubmissionService) SubmitAnswer(ctx context.Context, questionID uuid.UUID, req SubmitAnswerRequest) (*model.Answer, *model.Submission, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("submit_answer").
		WithUUID("question_id", questionID).
		WithString("author_id", req.AuthorID).
		Build()

	if req.Decision == "" {
		req.Decision = DecisionInReview
	}

	var (
		answer *model.Answer
		sub    *model.Submission
	)
	err := withTransaction(ctx, s.store, func(ctx context.Context) error {
		question, loaded, err := s.load(ctx, questionID)
		if err != nil {
			return err
		}
		sub = loaded

		if sub.QueuePosition(req.AuthorID) < 0 {
			return NewErrInvalidState("reviewer %s is not queued for question %s", req.AuthorID, questionID)
		}

		iteration, err := s.store.Question().IncrementAnswers(ctx, questionID)
		if err != nil {
			return storeErr(err, NewErrQuestionNotFound(questionID), "question", questionID)
		}
		question.TotalAnswers = iteration

		answer, err = s.store.Answer().Create(ctx, model.Answer{
			QuestionID:      questionID,
			AuthorID:        req.AuthorID,
			Iteration:       iteration,
			IsFinal:         req.IsFinal,
			Text:            req.Text,
			Sources:         req.Sources,
			SimilarityScore: req.SimilarityScore,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return NewErrConflict("question", questionID)
			}
			return classify(err)
		}
		tracer.Step("answer_created").WithUUID("answer_id", answer.ID).WithInt("iteration", iteration).Log()

		return s.advance(ctx, question, sub, AdvanceRequest{
			ReviewerID: req.AuthorID,
			AnswerID:   &answer.ID,
			Decision:   req.Decision,
		})
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, nil, err
	}

	tracer.Success().WithUUID("answer_id", answer.ID).Log()
	return answer, sub, nil
}

// RemoveAt withdraws the reviewer at the given queue position.
func (s *SubmissionService) RemoveAt(ctx context.Context, questionID uuid.UUID, index int) (*model.Submission, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("remove_queue_position").
		WithUUID("question_id", questionID).
		WithInt("index", index).
		Build()

	var sub *model.Submission
	err := withTransaction(ctx, s.store, func(ctx context.Context) error {
		var err error
		_, sub, err = s.load(ctx, questionID)
		if err != nil {
			return err
		}

		if index < 0 || index >= len(sub.Queue) {
			return NewErrQueueIndexOutOfRange(index, len(sub.Queue))
		}

		removed := sub.Queue[index].ReviewerID
		if frontier := sub.Frontier(); frontier != nil && frontier.Status == model.HistoryInReview && frontier.ReviewerID == removed {
			return NewErrInvalidState("reviewer %s owns the open turn", removed)
		}

		queue := make([]model.QueueEntry, 0, len(sub.Queue)-1)
		queue = append(queue, sub.Queue[:index]...)
		sub.Queue = append(queue, sub.Queue[index+1:]...)

		if err := s.store.Submission().Update(ctx, sub); err != nil {
			return storeErr(err, NewErrMissingSubmissionState(questionID), submissionResource, sub.ID)
		}
		tracer.Step("reviewer_removed").WithString("reviewer_id", removed).Log()
		return nil
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().Log()
	return sub, nil
}

func (s *SubmissionService) advance(ctx context.Context, question *model.Question, sub *model.Submission, req AdvanceRequest) error {
	status, err := req.Decision.historyStatus()
	if err != nil {
		return err
	}

	if sub.QueuePosition(req.ReviewerID) < 0 {
		return NewErrInvalidState("reviewer %s is not queued for question %s", req.ReviewerID, question.ID)
	}

	frontier := sub.Frontier()
	closesFrontier := frontier != nil && frontier.Status == model.HistoryInReview
	if closesFrontier && frontier.ReviewerID != req.ReviewerID {
		return NewErrInvalidState("turn of reviewer %s is still open", frontier.ReviewerID)
	}

	// The version guard runs before any history write so a lost race is a conflict.
	responder := req.ReviewerID
	sub.LastRespondedBy = &responder
	if err := s.store.Submission().Update(ctx, sub); err != nil {
		return storeErr(err, NewErrMissingSubmissionState(question.ID), submissionResource, sub.ID)
	}

	now := store.Now()
	if closesFrontier {
		frontier.Status = status
		if req.AnswerID != nil {
			frontier.AnswerID = req.AnswerID
		}
		frontier.RejectionReason = req.RejectionReason
		frontier.UpdatedAt = now
		if err := s.store.Submission().UpdateHistory(ctx, frontier); err != nil {
			return classify(err)
		}
	} else {
		entry := model.HistoryEntry{
			ReviewerID:      req.ReviewerID,
			AnswerID:        req.AnswerID,
			Status:          status,
			RejectionReason: req.RejectionReason,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.store.Submission().AppendHistory(ctx, sub, entry); err != nil {
			return storeErr(err, NewErrMissingSubmissionState(question.ID), submissionResource, sub.ID)
		}
	}

	return s.syncQuestionStatus(ctx, question, sub)
}

// syncQuestionStatus keeps open/in-review questions aligned with the queue state.
// Questions escalated, answered or closed are left alone.
func (s *SubmissionService) syncQuestionStatus(ctx context.Context, question *model.Question, sub *model.Submission) error {
	if question.Status != model.QuestionStatusOpen && question.Status != model.QuestionStatusInReview {
		return nil
	}

	desired := model.QuestionStatusOpen
	if sub.State() == model.SubmissionInReview {
		desired = model.QuestionStatusInReview
	}
	if desired == question.Status {
		return nil
	}

	if err := s.store.Question().UpdateStatus(ctx, question.ID, desired); err != nil {
		return storeErr(err, NewErrQuestionNotFound(question.ID), "question", question.ID)
	}
	question.Status = desired
	return nil
}

func (s *SubmissionService) load(ctx context.Context, questionID uuid.UUID) (*model.Question, *model.Submission, error) {
	question, err := s.store.Question().Get(ctx, questionID)
	if err != nil {
		return nil, nil, storeErr(err, NewErrQuestionNotFound(questionID), "question", questionID)
	}

	sub, err := s.store.Submission().GetByQuestionID(ctx, questionID)
	if err != nil {
		return nil, nil, storeErr(err, NewErrMissingSubmissionState(questionID), submissionResource, questionID)
	}
	return question, sub, nil
}
