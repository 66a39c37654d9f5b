package jobs

import (
	"time"

	"github.com/google/uuid"
)

const (
	// ItemTimeout bounds the work done for a single question of a batch.
	ItemTimeout = 2 * time.Minute
	JobKind     = "question_allocation"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Finished() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is the in-memory progress record of one bulk allocation batch.
type Job struct {
	ID         int64      `json:"id"`
	Kind       string     `json:"kind"`
	Status     JobStatus  `json:"status"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Failed     int        `json:"failed"`
	Chunks     int        `json:"chunks"`
	Log        []string   `json:"log"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (j Job) clone() Job {
	c := j
	c.Log = append([]string(nil), j.Log...)
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

// progress is the only thing a chunk worker shares with the dispatcher.
type progress struct {
	Chunk      int
	QuestionID uuid.UUID
	Err        error
	// Fatal marks a chunk that stopped before finishing its items.
	Fatal bool
	Msg   string
}
