package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/events"
	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"github.com/reviewdesk/review-engine/pkg/log"
	"github.com/reviewdesk/review-engine/pkg/metrics"
)

const rerouteResource = "reroute"

type ExpertOutcome string

const (
	ExpertOutcomeCompleted ExpertOutcome = "completed"
	ExpertOutcomeRejected  ExpertOutcome = "rejected"
)

type ModeratorOutcome string

const (
	ModeratorOutcomeApproved ModeratorOutcome = "approved"
	ModeratorOutcomeRejected ModeratorOutcome = "rejected"
)

type CreateRerouteRequest struct {
	ModeratorID string
	ExpertID    string
	Comment     *string
}

type ExpertDecisionRequest struct {
	ExpertID        string
	Outcome         ExpertOutcome
	AnswerID        *uuid.UUID
	RejectionReason *string
}

type ModeratorDecisionRequest struct {
	Outcome         ModeratorOutcome
	RejectionReason *string
	// ExpectedUpdatedAt is the stamp of the entry as the moderator last saw it.
	ExpectedUpdatedAt *time.Time
}

// RerouteService drives the escalation chain of disputed answers. Only the last
// entry of a chain is ever modified.
type RerouteService struct {
	store    store.Store
	notifier Notifier
	logger   *log.StructuredLogger
}

func NewRerouteService(s store.Store, notifier Notifier) *RerouteService {
	return &RerouteService{
		store:    s,
		notifier: notifierOrNoop(notifier),
		logger:   log.NewDebugLogger("reroute_service"),
	}
}

func (s *RerouteService) Get(ctx context.Context, rerouteID uuid.UUID) (*model.Reroute, error) {
	reroute, err := s.store.Reroute().Get(ctx, rerouteID)
	if err != nil {
		return nil, storeErr(err, NewErrRerouteNotFound(rerouteID), rerouteResource, rerouteID)
	}
	return reroute, nil
}

// Create opens the chain of an answer, or appends a new pending entry to a
// chain whose last entry was rejected.
func (s *RerouteService) Create(ctx context.Context, answerID uuid.UUID, req CreateRerouteRequest) (*model.Reroute, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("create_reroute").
		WithUUID("answer_id", answerID).
		WithString("moderator_id", req.ModeratorID).
		WithString("expert_id", req.ExpertID).
		Build()

	var reroute *model.Reroute
	err := withTransaction(ctx, s.store, func(ctx context.Context) error {
		answer, err := s.store.Answer().Get(ctx, answerID)
		if err != nil {
			return storeErr(err, NewErrAnswerNotFound(answerID), "answer", answerID)
		}

		if err := s.checkRole(ctx, req.ModeratorID, model.RoleModerator, model.RoleAdmin); err != nil {
			return err
		}
		if err := s.checkRole(ctx, req.ExpertID, model.RoleExpert); err != nil {
			return err
		}

		now := store.Now()
		entry := model.RerouteEntry{
			ReroutedBy: req.ModeratorID,
			ReroutedTo: req.ExpertID,
			Status:     model.ReroutePending,
			Comment:    req.Comment,
			ReroutedAt: now,
			UpdatedAt:  now,
		}

		reroute, err = s.store.Reroute().GetByAnswerID(ctx, answerID)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			reroute, err = s.store.Reroute().Create(ctx, model.Reroute{
				QuestionID: answer.QuestionID,
				AnswerID:   answerID,
				Entries:    []model.RerouteEntry{entry},
			})
			if err != nil {
				if errors.Is(err, store.ErrDuplicateKey) {
					return NewErrConflict("answer", answerID)
				}
				return classify(err)
			}
		case err != nil:
			return classify(err)
		default:
			last := reroute.Last()
			if last != nil {
				if !last.Status.Reopenable() {
					return NewErrInvalidState("reroute %s is %s and cannot be rerouted again", reroute.ID, last.Status)
				}
				if last.ReroutedTo == req.ExpertID {
					return NewErrInvalidState("expert %s already handled the last entry of reroute %s", req.ExpertID, reroute.ID)
				}
			}
			if err := s.store.Reroute().AppendEntry(ctx, reroute, entry); err != nil {
				return classify(err)
			}
		}

		if err := s.store.Question().UpdateStatus(ctx, answer.QuestionID, model.QuestionStatusReRouted); err != nil {
			return storeErr(err, NewErrQuestionNotFound(answer.QuestionID), "question", answer.QuestionID)
		}
		return nil
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	metrics.IncreaseRerouteTransitionsMetric(string(model.ReroutePending))
	notifyAll(ctx, s.notifier, []events.Notification{{
		ReviewerID: req.ExpertID,
		Title:      "Answer Rerouted",
		Message:    "A moderator has rerouted an answer to you",
		EntityID:   reroute.ID.String(),
		Type:       events.NotificationRerouteAssigned,
	}})

	tracer.Success().WithUUID("reroute_id", reroute.ID).WithInt("entries", len(reroute.Entries)).Log()
	return reroute, nil
}

// RecordExpertDecision completes or rejects the pending entry assigned to the expert.
func (s *RerouteService) RecordExpertDecision(ctx context.Context, rerouteID uuid.UUID, req ExpertDecisionRequest) (*model.Reroute, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("record_expert_decision").
		WithUUID("reroute_id", rerouteID).
		WithString("expert_id", req.ExpertID).
		WithString("outcome", string(req.Outcome)).
		Build()

	var (
		status  model.RerouteStatus
		reroute *model.Reroute
		last    *model.RerouteEntry
	)
	switch req.Outcome {
	case ExpertOutcomeCompleted:
		status = model.RerouteExpertCompleted
	case ExpertOutcomeRejected:
		status = model.RerouteExpertRejected
	default:
		return nil, NewErrInvalidState("unknown expert outcome %q", req.Outcome)
	}

	err := withTransaction(ctx, s.store, func(ctx context.Context) error {
		var err error
		reroute, last, err = s.loadActive(ctx, rerouteID)
		if err != nil {
			return err
		}

		if last.Status != model.ReroutePending {
			return NewErrInvalidState("reroute %s is %s, expected %s", rerouteID, last.Status, model.ReroutePending)
		}
		if last.ReroutedTo != req.ExpertID {
			return NewErrInvalidState("reroute %s is assigned to another expert", rerouteID)
		}

		if req.AnswerID != nil {
			answer, err := s.store.Answer().Get(ctx, *req.AnswerID)
			if err != nil {
				return storeErr(err, NewErrAnswerNotFound(*req.AnswerID), "answer", *req.AnswerID)
			}
			if answer.QuestionID != reroute.QuestionID {
				return NewErrInvalidState("answer %s does not belong to question %s", answer.ID, reroute.QuestionID)
			}
		}

		updated := *last
		updated.Status = status
		updated.AnswerID = req.AnswerID
		updated.RejectionReason = req.RejectionReason
		updated.UpdatedAt = store.Now()
		if err := s.store.Reroute().UpdateLastEntry(ctx, &updated, model.ReroutePending, last.UpdatedAt); err != nil {
			return storeErr(err, NewErrRerouteNotFound(rerouteID), rerouteResource, rerouteID)
		}
		*last = updated
		return nil
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	metrics.IncreaseRerouteTransitionsMetric(string(status))
	notifyAll(ctx, s.notifier, []events.Notification{{
		ReviewerID: last.ReroutedBy,
		Title:      "Reroute Answered",
		Message:    "The expert has responded to a rerouted answer",
		EntityID:   rerouteID.String(),
		Type:       events.NotificationRerouteDecided,
	}})

	tracer.Success().WithString("status", string(status)).Log()
	return reroute, nil
}

// RecordModeratorDecision approves or rejects the expert's completion. The entry
// must still carry the stamp it had when the moderator read it.
func (s *RerouteService) RecordModeratorDecision(ctx context.Context, rerouteID uuid.UUID, req ModeratorDecisionRequest) (*model.Reroute, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("record_moderator_decision").
		WithUUID("reroute_id", rerouteID).
		WithString("outcome", string(req.Outcome)).
		Build()

	var (
		status     model.RerouteStatus
		moderation model.ModerationStatus
		reroute    *model.Reroute
		last       *model.RerouteEntry
	)
	switch req.Outcome {
	case ModeratorOutcomeApproved:
		status, moderation = model.RerouteModeratorApproved, model.ModerationApproved
	case ModeratorOutcomeRejected:
		status, moderation = model.RerouteModeratorRejected, model.ModerationRejected
	default:
		return nil, NewErrInvalidState("unknown moderator outcome %q", req.Outcome)
	}

	err := withTransaction(ctx, s.store, func(ctx context.Context) error {
		var err error
		reroute, last, err = s.loadActive(ctx, rerouteID)
		if err != nil {
			return err
		}

		if last.Status != model.RerouteExpertCompleted {
			return NewErrInvalidState("reroute %s is %s, expected %s", rerouteID, last.Status, model.RerouteExpertCompleted)
		}
		if req.ExpectedUpdatedAt != nil && !req.ExpectedUpdatedAt.Equal(last.UpdatedAt) {
			return NewErrConflict(rerouteResource, rerouteID)
		}

		updated := *last
		updated.Status = status
		updated.RejectionReason = req.RejectionReason
		updated.UpdatedAt = store.Now()
		if err := s.store.Reroute().UpdateLastEntry(ctx, &updated, model.RerouteExpertCompleted, last.UpdatedAt); err != nil {
			return storeErr(err, NewErrRerouteNotFound(rerouteID), rerouteResource, rerouteID)
		}
		*last = updated

		answerID := reroute.AnswerID
		if last.AnswerID != nil {
			answerID = *last.AnswerID
		}
		if err := s.store.Answer().UpdateModeration(ctx, answerID, moderation, req.RejectionReason); err != nil {
			return storeErr(err, NewErrAnswerNotFound(answerID), "answer", answerID)
		}

		if status == model.RerouteModeratorApproved {
			if err := s.store.Question().UpdateStatus(ctx, reroute.QuestionID, model.QuestionStatusAnswered); err != nil {
				return storeErr(err, NewErrQuestionNotFound(reroute.QuestionID), "question", reroute.QuestionID)
			}
		}
		return nil
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	metrics.IncreaseRerouteTransitionsMetric(string(status))
	notifyAll(ctx, s.notifier, []events.Notification{{
		ReviewerID: last.ReroutedTo,
		Title:      "Reroute Reviewed",
		Message:    "A moderator has reviewed your rerouted answer",
		EntityID:   rerouteID.String(),
		Type:       events.NotificationRerouteDecided,
	}})

	tracer.Success().WithString("status", string(status)).Log()
	return reroute, nil
}

func (s *RerouteService) loadActive(ctx context.Context, rerouteID uuid.UUID) (*model.Reroute, *model.RerouteEntry, error) {
	reroute, err := s.store.Reroute().Get(ctx, rerouteID)
	if err != nil {
		return nil, nil, storeErr(err, NewErrRerouteNotFound(rerouteID), rerouteResource, rerouteID)
	}
	last := reroute.Last()
	if last == nil {
		return nil, nil, NewErrInvalidState("reroute %s has no entries", rerouteID)
	}
	return reroute, last, nil
}

func (s *RerouteService) checkRole(ctx context.Context, reviewerID string, roles ...model.Role) error {
	reviewer, err := s.store.Reviewer().Get(ctx, reviewerID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrReviewerNotFound(reviewerID)
		}
		return classify(err)
	}
	for _, role := range roles {
		if reviewer.Role == role {
			return nil
		}
	}
	return NewErrInvalidState("reviewer %s has role %s", reviewerID, reviewer.Role)
}
