// Package v1 holds the wire types of the review engine REST API.
package v1

import (
	"time"

	"github.com/google/uuid"
)

type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}

type Status struct {
	Status string `json:"status"`
}

type JobCreate struct {
	QuestionIds []uuid.UUID `json:"questionIds" validate:"required,min=1,dive,uuid_not_nil"`
}

type JobCreated struct {
	Id int64 `json:"id"`
}

type Job struct {
	Id         int64      `json:"id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Failed     int        `json:"failed"`
	Chunks     int        `json:"chunks"`
	Log        []string   `json:"log"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type JobList []Job

type QueueEntry struct {
	ReviewerId string    `json:"reviewerId"`
	AssignedAt time.Time `json:"assignedAt"`
}

type HistoryEntry struct {
	Seq             int        `json:"seq"`
	ReviewerId      string     `json:"reviewerId"`
	AnswerId        *uuid.UUID `json:"answerId,omitempty"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type Submission struct {
	Id              uuid.UUID      `json:"id"`
	QuestionId      uuid.UUID      `json:"questionId"`
	State           string         `json:"state"`
	Queue           []QueueEntry   `json:"queue"`
	History         []HistoryEntry `json:"history"`
	LastRespondedBy *string        `json:"lastRespondedBy,omitempty"`
	Version         int            `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

type Allocate struct {
	ReviewerIds []string `json:"reviewerIds" validate:"required,min=1,dive,reviewer_id"`
}

type Advance struct {
	ReviewerId      string     `json:"reviewerId" validate:"required,reviewer_id"`
	AnswerId        *uuid.UUID `json:"answerId,omitempty"`
	Decision        string     `json:"decision" validate:"required,decision"`
	RejectionReason *string    `json:"rejectionReason,omitempty" validate:"required_if=Decision rejected"`
}

type AnswerCreate struct {
	AuthorId        string   `json:"authorId" validate:"required,reviewer_id"`
	Text            string   `json:"text" validate:"required,max=10000"`
	Sources         []string `json:"sources" validate:"omitempty,dive,required"`
	IsFinal         bool     `json:"isFinal"`
	SimilarityScore *float64 `json:"similarityScore,omitempty" validate:"omitempty,min=0,max=1"`
	Decision        string   `json:"decision,omitempty" validate:"omitempty,decision"`
}

type Answer struct {
	Id                  uuid.UUID   `json:"id"`
	QuestionId          uuid.UUID   `json:"questionId"`
	AuthorId            string      `json:"authorId"`
	Iteration           int         `json:"iteration"`
	IsFinal             bool        `json:"isFinal"`
	Text                string      `json:"text"`
	Sources             []string    `json:"sources"`
	SimilarityScore     *float64    `json:"similarityScore,omitempty"`
	ModerationStatus    string      `json:"moderationStatus"`
	ModerationRejection *string     `json:"moderationRejection,omitempty"`
	CreatedAt           time.Time   `json:"createdAt"`
	Submission          *Submission `json:"submission,omitempty"`
}

type RerouteCreate struct {
	ModeratorId string  `json:"moderatorId" validate:"required,reviewer_id"`
	ExpertId    string  `json:"expertId" validate:"required,reviewer_id"`
	Comment     *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type ExpertDecision struct {
	ExpertId        string     `json:"expertId" validate:"required,reviewer_id"`
	Outcome         string     `json:"outcome" validate:"required,expert_outcome"`
	AnswerId        *uuid.UUID `json:"answerId,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty" validate:"required_if=Outcome rejected"`
}

type ModeratorDecision struct {
	Outcome           string     `json:"outcome" validate:"required,moderator_outcome"`
	RejectionReason   *string    `json:"rejectionReason,omitempty" validate:"required_if=Outcome rejected"`
	ExpectedUpdatedAt *time.Time `json:"expectedUpdatedAt,omitempty"`
}

type RerouteEntry struct {
	Seq             int        `json:"seq"`
	ReroutedBy      string     `json:"reroutedBy"`
	ReroutedTo      string     `json:"reroutedTo"`
	Status          string     `json:"status"`
	Comment         *string    `json:"comment,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	AnswerId        *uuid.UUID `json:"answerId,omitempty"`
	ReroutedAt      time.Time  `json:"reroutedAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type Reroute struct {
	Id         uuid.UUID      `json:"id"`
	QuestionId uuid.UUID      `json:"questionId"`
	AnswerId   uuid.UUID      `json:"answerId"`
	Entries    []RerouteEntry `json:"entries"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type Assignment struct {
	SubmissionId        uuid.UUID `json:"submissionId" validate:"uuid_not_nil"`
	CandidateReviewerId string    `json:"candidateReviewerId" validate:"required,reviewer_id"`
}

// RebalanceRequest runs the given assignments, or a stall detection pass when
// none are given.
type RebalanceRequest struct {
	Assignments []Assignment `json:"assignments" validate:"omitempty,dive"`
}

type RebalanceSummary struct {
	Message              string `json:"message"`
	ExpertsInvolved      int    `json:"expertsInvolved"`
	SubmissionsProcessed int    `json:"submissionsProcessed"`
}
