package model

import (
	"time"

	"github.com/google/uuid"
)

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

type Answer struct {
	ID                  uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	QuestionID          uuid.UUID `gorm:"not null;type:VARCHAR(255);uniqueIndex:answers_question_iteration"`
	AuthorID            string    `gorm:"not null;type:VARCHAR(255)"`
	Iteration           int       `gorm:"not null;uniqueIndex:answers_question_iteration"`
	IsFinal             bool      `gorm:"not null;default:false"`
	Text                string    `gorm:"not null"`
	Sources             []string  `gorm:"serializer:json;type:TEXT"`
	SimilarityScore     *float64
	ModerationStatus    ModerationStatus `gorm:"not null;type:VARCHAR(32);default:pending"`
	ModerationRejection *string
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time
}
