package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

type Submission interface {
	List(ctx context.Context, filter *SubmissionQueryFilter, opts *SubmissionQueryOptions) ([]model.Submission, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	GetByQuestionID(ctx context.Context, questionID uuid.UUID) (*model.Submission, error)
	Create(ctx context.Context, submission model.Submission) (*model.Submission, error)
	Update(ctx context.Context, submission *model.Submission) error
	AppendHistory(ctx context.Context, submission *model.Submission, entry model.HistoryEntry) error
	UpdateHistory(ctx context.Context, entry *model.HistoryEntry) error
}

type SubmissionStore struct {
	db *gorm.DB
}

// Make sure we conform to Submission interface
var _ Submission = (*SubmissionStore)(nil)

func NewSubmissionStore(db *gorm.DB) Submission {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) List(ctx context.Context, filter *SubmissionQueryFilter, opts *SubmissionQueryOptions) ([]model.Submission, error) {
	var submissions []model.Submission
	tx := getDB(ctx, s.db).Model(&submissions).Preload("History", orderBySeq)

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (s *SubmissionStore) Get(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *SubmissionStore) GetByQuestionID(ctx context.Context, questionID uuid.UUID) (*model.Submission, error) {
	return s.first(ctx, "question_id = ?", questionID)
}

func (s *SubmissionStore) first(ctx context.Context, query string, args ...any) (*model.Submission, error) {
	var submission model.Submission
	result := getDB(ctx, s.db).Preload("History", orderBySeq).Where(query, args...).First(&submission)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &submission, nil
}

func (s *SubmissionStore) Create(ctx context.Context, submission model.Submission) (*model.Submission, error) {
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	for i := range submission.History {
		submission.History[i].SubmissionID = submission.ID
		submission.History[i].Seq = i
	}
	if err := getDB(ctx, s.db).Create(&submission).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &submission, nil
}

// Update writes the queue and responder of the submission if nobody else changed
// it since it was read. On success the in-memory version is advanced.
func (s *SubmissionStore) Update(ctx context.Context, submission *model.Submission) error {
	now := Now()
	result := getDB(ctx, s.db).Model(&model.Submission{}).
		Where("id = ? AND version = ?", submission.ID, submission.Version).
		Select("queue", "last_responded_by", "version", "updated_at").
		UpdateColumns(&model.Submission{
			Queue:           submission.Queue,
			LastRespondedBy: submission.LastRespondedBy,
			Version:         submission.Version + 1,
			UpdatedAt:       now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := s.Get(ctx, submission.ID); err != nil {
			return err
		}
		return ErrStaleVersion
	}

	submission.Version++
	submission.UpdatedAt = now
	return nil
}

func (s *SubmissionStore) AppendHistory(ctx context.Context, submission *model.Submission, entry model.HistoryEntry) error {
	entry.ID = 0
	entry.SubmissionID = submission.ID
	entry.Seq = len(submission.History)
	if err := getDB(ctx, s.db).Create(&entry).Error; err != nil {
		// another writer appended the same seq first
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrStaleVersion
		}
		return err
	}
	submission.History = append(submission.History, entry)
	return nil
}

// UpdateHistory rewrites a single history entry in place. Only the frontier is
// ever passed here.
func (s *SubmissionStore) UpdateHistory(ctx context.Context, entry *model.HistoryEntry) error {
	result := getDB(ctx, s.db).Model(&model.HistoryEntry{}).Where("id = ?", entry.ID).
		UpdateColumns(map[string]any{
			"reviewer_id":      entry.ReviewerID,
			"answer_id":        entry.AnswerID,
			"status":           entry.Status,
			"rejection_reason": entry.RejectionReason,
			"created_at":       entry.CreatedAt,
			"updated_at":       entry.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func orderBySeq(db *gorm.DB) *gorm.DB {
	return db.Order("seq")
}
