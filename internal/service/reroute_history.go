package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/store/model"
)

type ReviewerSnapshot struct {
	ID    string     `json:"id"`
	Name  string     `json:"name,omitempty"`
	Email string     `json:"email,omitempty"`
	Role  model.Role `json:"role,omitempty"`
}

type AnswerSnapshot struct {
	ID               uuid.UUID              `json:"id"`
	AuthorID         string                 `json:"authorId"`
	Iteration        int                    `json:"iteration"`
	IsFinal          bool                   `json:"isFinal"`
	Text             string                 `json:"text"`
	Sources          []string               `json:"sources"`
	ModerationStatus model.ModerationStatus `json:"moderationStatus"`
	CreatedAt        time.Time              `json:"createdAt"`
}

type RerouteHistoryEntry struct {
	Seq             int                 `json:"seq"`
	Status          model.RerouteStatus `json:"status"`
	ReroutedBy      ReviewerSnapshot    `json:"reroutedBy"`
	ReroutedTo      ReviewerSnapshot    `json:"reroutedTo"`
	Comment         *string             `json:"comment,omitempty"`
	RejectionReason *string             `json:"rejectionReason,omitempty"`
	Answer          *AnswerSnapshot     `json:"answer,omitempty"`
	ReroutedAt      time.Time           `json:"reroutedAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// RerouteHistory is the audit view of an escalation chain.
type RerouteHistory struct {
	RerouteID  uuid.UUID             `json:"rerouteId"`
	QuestionID uuid.UUID             `json:"questionId"`
	Answer     *AnswerSnapshot       `json:"answer,omitempty"`
	Entries    []RerouteHistoryEntry `json:"entries"`
}

// Statuses replays the ordered status sequence of the chain.
func (h *RerouteHistory) Statuses() []model.RerouteStatus {
	statuses := make([]model.RerouteStatus, 0, len(h.Entries))
	for _, e := range h.Entries {
		statuses = append(statuses, e.Status)
	}
	return statuses
}

// History joins the chain of an answer with reviewer and answer snapshots.
func (s *RerouteService) History(ctx context.Context, answerID uuid.UUID) (*RerouteHistory, error) {
	tracer := s.logger.WithContext(ctx).
		Operation("reroute_history").
		WithUUID("answer_id", answerID).
		Build()

	reroute, err := s.store.Reroute().GetByAnswerID(ctx, answerID)
	if err != nil {
		tracer.Error(err).Log()
		return nil, storeErr(err, NewErrRerouteNotFound(answerID), rerouteResource, answerID)
	}

	reviewerIDs := make([]string, 0, 2*len(reroute.Entries))
	answerIDs := []uuid.UUID{reroute.AnswerID}
	for _, e := range reroute.Entries {
		reviewerIDs = append(reviewerIDs, e.ReroutedBy, e.ReroutedTo)
		if e.AnswerID != nil {
			answerIDs = append(answerIDs, *e.AnswerID)
		}
	}

	reviewers, err := s.store.Reviewer().GetMany(ctx, reviewerIDs)
	if err != nil {
		tracer.Error(err).Log()
		return nil, classify(err)
	}
	answers, err := s.store.Answer().GetMany(ctx, answerIDs)
	if err != nil {
		tracer.Error(err).Log()
		return nil, classify(err)
	}

	history := &RerouteHistory{
		RerouteID:  reroute.ID,
		QuestionID: reroute.QuestionID,
		Answer:     answerSnapshot(answers, &reroute.AnswerID),
		Entries:    make([]RerouteHistoryEntry, 0, len(reroute.Entries)),
	}
	for _, e := range reroute.Entries {
		history.Entries = append(history.Entries, RerouteHistoryEntry{
			Seq:             e.Seq,
			Status:          e.Status,
			ReroutedBy:      reviewerSnapshot(reviewers, e.ReroutedBy),
			ReroutedTo:      reviewerSnapshot(reviewers, e.ReroutedTo),
			Comment:         e.Comment,
			RejectionReason: e.RejectionReason,
			Answer:          answerSnapshot(answers, e.AnswerID),
			ReroutedAt:      e.ReroutedAt,
			UpdatedAt:       e.UpdatedAt,
		})
	}

	tracer.Success().WithInt("entries", len(history.Entries)).Log()
	return history, nil
}

func reviewerSnapshot(reviewers map[string]model.Reviewer, id string) ReviewerSnapshot {
	r, found := reviewers[id]
	if !found {
		return ReviewerSnapshot{ID: id}
	}
	return ReviewerSnapshot{ID: r.ID, Name: r.Name, Email: r.Email, Role: r.Role}
}

func answerSnapshot(answers map[uuid.UUID]model.Answer, id *uuid.UUID) *AnswerSnapshot {
	if id == nil {
		return nil
	}
	a, found := answers[*id]
	if !found {
		return nil
	}
	return &AnswerSnapshot{
		ID:               a.ID,
		AuthorID:         a.AuthorID,
		Iteration:        a.Iteration,
		IsFinal:          a.IsFinal,
		Text:             a.Text,
		Sources:          a.Sources,
		ModerationStatus: a.ModerationStatus,
		CreatedAt:        a.CreatedAt,
	}
}
