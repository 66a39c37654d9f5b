package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

type Question interface {
	List(ctx context.Context, filter *QuestionQueryFilter) ([]model.Question, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Question, error)
	Create(ctx context.Context, question model.Question) (*model.Question, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuestionStatus) error
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	IncrementAnswers(ctx context.Context, id uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[model.QuestionStatus]int64, error)
}

type QuestionStore struct {
	db *gorm.DB
}

// Make sure we conform to Question interface
var _ Question = (*QuestionStore)(nil)

func NewQuestionStore(db *gorm.DB) Question {
	return &QuestionStore{db: db}
}

func (q *QuestionStore) List(ctx context.Context, filter *QuestionQueryFilter) ([]model.Question, error) {
	var questions []model.Question
	tx := getDB(ctx, q.db).Model(&questions).Order("created_at")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (q *QuestionStore) Get(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	var question model.Question
	if err := getDB(ctx, q.db).First(&question, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &question, nil
}

func (q *QuestionStore) Create(ctx context.Context, question model.Question) (*model.Question, error) {
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	if question.Status == "" {
		question.Status = model.QuestionStatusOpen
	}
	if question.Priority == "" {
		question.Priority = model.PriorityMedium
	}
	if err := getDB(ctx, q.db).Create(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &question, nil
}

func (q *QuestionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuestionStatus) error {
	result := getDB(ctx, q.db).Model(&model.Question{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"status": status, "updated_at": Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (q *QuestionStore) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	result := getDB(ctx, q.db).Model(&model.Question{}).Where("id = ?", id).
		Select("embedding", "updated_at").
		UpdateColumns(&model.Question{Embedding: embedding, UpdatedAt: Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// IncrementAnswers bumps the answer counter atomically and returns the new value.
func (q *QuestionStore) IncrementAnswers(ctx context.Context, id uuid.UUID) (int, error) {
	db := getDB(ctx, q.db)
	result := db.Model(&model.Question{}).Where("id = ?", id).
		UpdateColumn("total_answers", gorm.Expr("total_answers + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrRecordNotFound
	}

	var total int
	if err := db.Model(&model.Question{}).Select("total_answers").Where("id = ?", id).Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Delete removes the question together with its submission state, answers and
// escalation chains.
func (q *QuestionStore) Delete(ctx context.Context, id uuid.UUID) error {
	db := getDB(ctx, q.db)
	stms := []struct {
		query string
	}{
		{"DELETE FROM submission_history WHERE submission_id IN (SELECT id FROM submissions WHERE question_id = ?)"},
		{"DELETE FROM submissions WHERE question_id = ?"},
		{"DELETE FROM reroute_entries WHERE reroute_id IN (SELECT id FROM reroutes WHERE question_id = ?)"},
		{"DELETE FROM reroutes WHERE question_id = ?"},
		{"DELETE FROM answers WHERE question_id = ?"},
	}
	for _, stm := range stms {
		if err := db.Exec(stm.query, id).Error; err != nil {
			return err
		}
	}

	result := db.Delete(&model.Question{}, "id = ?", id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (q *QuestionStore) CountByStatus(ctx context.Context) (map[model.QuestionStatus]int64, error) {
	var rows []struct {
		Status model.QuestionStatus
		Total  int64
	}
	if err := getDB(ctx, q.db).Model(&model.Question{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[model.QuestionStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
