package model

import (
	"time"

	"github.com/google/uuid"
)

type HistoryStatus string

const (
	HistoryInReview   HistoryStatus = "in-review"
	HistoryApproved   HistoryStatus = "approved"
	HistoryRejected   HistoryStatus = "rejected"
	HistoryReassigned HistoryStatus = "reassigned"
)

// IsTerminal reports whether the turn closed the chain for automatic processing.
func (s HistoryStatus) IsTerminal() bool {
	return s == HistoryApproved || s == HistoryRejected
}

type SubmissionState string

const (
	SubmissionUnstarted SubmissionState = "unstarted"
	SubmissionInReview  SubmissionState = "in-review"
	SubmissionApproved  SubmissionState = "approved"
	SubmissionRejected  SubmissionState = "rejected"
	SubmissionIdle      SubmissionState = "idle"
)

type QueueEntry struct {
	ReviewerID string    `json:"reviewerId"`
	AssignedAt time.Time `json:"assignedAt"`
}

type Submission struct {
	ID              uuid.UUID      `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	QuestionID      uuid.UUID      `gorm:"not null;type:VARCHAR(255);uniqueIndex:submissions_question_id_idx"`
	Queue           []QueueEntry   `gorm:"serializer:json;type:TEXT"`
	History         []HistoryEntry `gorm:"foreignKey:SubmissionID;references:ID;constraint:OnDelete:CASCADE;"`
	LastRespondedBy *string        `gorm:"type:VARCHAR(255)"`
	Version         int            `gorm:"not null;default:0"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time
}

type HistoryEntry struct {
	ID              uint          `gorm:"primaryKey;autoIncrement"`
	SubmissionID    uuid.UUID     `gorm:"not null;type:VARCHAR(255);uniqueIndex:submission_history_seq_idx"`
	Seq             int           `gorm:"not null;uniqueIndex:submission_history_seq_idx"`
	ReviewerID      string        `gorm:"not null;type:VARCHAR(255);index:submission_history_reviewer_idx"`
	AnswerID        *uuid.UUID    `gorm:"type:VARCHAR(255)"`
	Status          HistoryStatus `gorm:"not null;type:VARCHAR(32)"`
	RejectionReason *string
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (HistoryEntry) TableName() string {
	return "submission_history"
}

// Frontier returns the last history entry, the only one that may still be open.
func (s *Submission) Frontier() *HistoryEntry {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}

func (s *Submission) State() SubmissionState {
	last := s.Frontier()
	if last == nil {
		if len(s.Queue) == 0 {
			return SubmissionIdle
		}
		return SubmissionUnstarted
	}
	switch last.Status {
	case HistoryInReview:
		return SubmissionInReview
	case HistoryApproved:
		return SubmissionApproved
	case HistoryRejected:
		return SubmissionRejected
	default:
		return SubmissionIdle
	}
}

// QueueHead returns the next reviewer to act, if any.
func (s *Submission) QueueHead() (QueueEntry, bool) {
	if len(s.Queue) == 0 {
		return QueueEntry{}, false
	}
	return s.Queue[0], true
}

// QueuePosition returns the index of the reviewer in the queue or -1.
func (s *Submission) QueuePosition(reviewerID string) int {
	for i, e := range s.Queue {
		if e.ReviewerID == reviewerID {
			return i
		}
	}
	return -1
}

// Reviewers lists every reviewer referenced by the queue or the history.
func (s *Submission) Reviewers() []string {
	ids := make([]string, 0, len(s.Queue)+len(s.History))
	for _, e := range s.Queue {
		ids = append(ids, e.ReviewerID)
	}
	for _, h := range s.History {
		ids = append(ids, h.ReviewerID)
	}
	return ids
}

func (s *Submission) QueueIDs() []string {
	ids := make([]string, 0, len(s.Queue))
	for _, e := range s.Queue {
		ids = append(ids, e.ReviewerID)
	}
	return ids
}

func NewQueue(reviewerIDs []string, at time.Time) []QueueEntry {
	queue := make([]QueueEntry, 0, len(reviewerIDs))
	for _, id := range reviewerIDs {
		queue = append(queue, QueueEntry{ReviewerID: id, AssignedAt: at})
	}
	return queue
}
