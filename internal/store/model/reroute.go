package model

import (
	"time"

	"github.com/google/uuid"
)

type RerouteStatus string

const (
	ReroutePending           RerouteStatus = "pending"
	RerouteExpertCompleted   RerouteStatus = "expert_completed"
	RerouteExpertRejected    RerouteStatus = "expert_rejected"
	RerouteModeratorApproved RerouteStatus = "moderator_approved"
	RerouteModeratorRejected RerouteStatus = "moderator_rejected"
)

// Reopenable reports whether a new entry may be appended after this status.
func (s RerouteStatus) Reopenable() bool {
	return s == RerouteExpertRejected || s == RerouteModeratorRejected
}

// Reroute is the escalation chain of one disputed answer.
type Reroute struct {
	ID         uuid.UUID      `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	QuestionID uuid.UUID      `gorm:"not null;type:VARCHAR(255);index:reroutes_question_id_idx"`
	AnswerID   uuid.UUID      `gorm:"not null;type:VARCHAR(255);uniqueIndex:reroutes_answer_id_idx"`
	Entries    []RerouteEntry `gorm:"foreignKey:RerouteID;references:ID;constraint:OnDelete:CASCADE;"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time
}

type RerouteEntry struct {
	ID              uint          `gorm:"primaryKey;autoIncrement"`
	RerouteID       uuid.UUID     `gorm:"not null;type:VARCHAR(255);uniqueIndex:reroute_entries_seq_idx"`
	Seq             int           `gorm:"not null;uniqueIndex:reroute_entries_seq_idx"`
	ReroutedBy      string        `gorm:"not null;type:VARCHAR(255)"`
	ReroutedTo      string        `gorm:"not null;type:VARCHAR(255);index:reroute_entries_rerouted_to_idx"`
	Status          RerouteStatus `gorm:"not null;type:VARCHAR(32)"`
	Comment         *string
	RejectionReason *string
	AnswerID        *uuid.UUID `gorm:"type:VARCHAR(255)"`
	ReroutedAt      time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// Last returns the active entry of the chain.
func (r *Reroute) Last() *RerouteEntry {
	if len(r.Entries) == 0 {
		return nil
	}
	return &r.Entries[len(r.Entries)-1]
}

func (r *Reroute) Statuses() []RerouteStatus {
	statuses := make([]RerouteStatus, 0, len(r.Entries))
	for _, e := range r.Entries {
		statuses = append(statuses, e.Status)
	}
	return statuses
}
