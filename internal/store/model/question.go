package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type QuestionStatus string

const (
	QuestionStatusOpen     QuestionStatus = "open"
	QuestionStatusInReview QuestionStatus = "in-review"
	QuestionStatusReRouted QuestionStatus = "re-routed"
	QuestionStatusAnswered QuestionStatus = "answered"
	QuestionStatusClosed   QuestionStatus = "closed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Question struct {
	ID           uuid.UUID      `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	Text         string         `gorm:"not null"`
	Status       QuestionStatus `gorm:"not null;type:VARCHAR(32);default:open;index:questions_status_idx"`
	Priority     Priority       `gorm:"not null;type:VARCHAR(16);default:medium"`
	Region       string         `gorm:"type:VARCHAR(255)"`
	District     string         `gorm:"type:VARCHAR(255)"`
	Crop         string         `gorm:"type:VARCHAR(255)"`
	Season       string         `gorm:"type:VARCHAR(255)"`
	Domain       string         `gorm:"type:VARCHAR(255)"`
	TotalAnswers int            `gorm:"not null;default:0"`
	Source       string         `gorm:"type:VARCHAR(100)"`
	Embedding    []float32      `gorm:"serializer:json;type:TEXT"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time
}

// Topics returns the question side of expert matching.
func (q Question) Topics() TopicalPreferences {
	return TopicalPreferences{
		Region: q.Region,
		Crop:   q.Crop,
		Domain: q.Domain,
	}
}

func (q Question) String() string {
	val, _ := json.Marshal(q)
	return string(val)
}

// TopicalPreferences are the fields of a question an expert preference is matched against.
type TopicalPreferences struct {
	Region string
	Crop   string
	Domain string
}
