package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

type Answer interface {
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]model.Answer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Answer, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Answer, error)
	Create(ctx context.Context, answer model.Answer) (*model.Answer, error)
	UpdateModeration(ctx context.Context, id uuid.UUID, status model.ModerationStatus, reason *string) error
}

type AnswerStore struct {
	db *gorm.DB
}

// Make sure we conform to Answer interface
var _ Answer = (*AnswerStore)(nil)

func NewAnswerStore(db *gorm.DB) Answer {
	return &AnswerStore{db: db}
}

func (a *AnswerStore) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]model.Answer, error) {
	var answers []model.Answer
	if err := getDB(ctx, a.db).Where("question_id = ?", questionID).Order("iteration").Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *AnswerStore) Get(ctx context.Context, id uuid.UUID) (*model.Answer, error) {
	var answer model.Answer
	if err := getDB(ctx, a.db).First(&answer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerStore) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Answer, error) {
	result := make(map[uuid.UUID]model.Answer, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var answers []model.Answer
	if err := getDB(ctx, a.db).Where("id IN ?", ids).Find(&answers).Error; err != nil {
		return nil, err
	}
	for _, answer := range answers {
		result[answer.ID] = answer
	}
	return result, nil
}

func (a *AnswerStore) Create(ctx context.Context, answer model.Answer) (*model.Answer, error) {
	if answer.ID == uuid.Nil {
		answer.ID = uuid.New()
	}
	if answer.ModerationStatus == "" {
		answer.ModerationStatus = model.ModerationPending
	}
	if err := getDB(ctx, a.db).Create(&answer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &answer, nil
}

func (a *AnswerStore) UpdateModeration(ctx context.Context, id uuid.UUID, status model.ModerationStatus, reason *string) error {
	result := getDB(ctx, a.db).Model(&model.Answer{}).Where("id = ?", id).
		UpdateColumns(map[string]any{
			"moderation_status":    status,
			"moderation_rejection": reason,
			"updated_at":           Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
