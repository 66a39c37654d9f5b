package store

import (
	"context"
	"errors"

	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

type Reviewer interface {
	List(ctx context.Context, filter *ReviewerQueryFilter) ([]model.Reviewer, error)
	Get(ctx context.Context, id string) (*model.Reviewer, error)
	GetMany(ctx context.Context, ids []string) (map[string]model.Reviewer, error)
	Create(ctx context.Context, reviewer model.Reviewer) (*model.Reviewer, error)
	AdjustReputation(ctx context.Context, id string, delta int64) error
}

type ReviewerStore struct {
	db *gorm.DB
}

// Make sure we conform to Reviewer interface
var _ Reviewer = (*ReviewerStore)(nil)

func NewReviewerStore(db *gorm.DB) Reviewer {
	return &ReviewerStore{db: db}
}

func (r *ReviewerStore) List(ctx context.Context, filter *ReviewerQueryFilter) ([]model.Reviewer, error) {
	var reviewers []model.Reviewer
	tx := getDB(ctx, r.db).Model(&reviewers).Order("id")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Find(&reviewers).Error; err != nil {
		return nil, err
	}
	return reviewers, nil
}

func (r *ReviewerStore) Get(ctx context.Context, id string) (*model.Reviewer, error) {
	var reviewer model.Reviewer
	if err := getDB(ctx, r.db).First(&reviewer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &reviewer, nil
}

func (r *ReviewerStore) GetMany(ctx context.Context, ids []string) (map[string]model.Reviewer, error) {
	result := make(map[string]model.Reviewer, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	reviewers, err := r.List(ctx, NewReviewerQueryFilter().ByID(ids...))
	if err != nil {
		return nil, err
	}
	for _, reviewer := range reviewers {
		result[reviewer.ID] = reviewer
	}
	return result, nil
}

func (r *ReviewerStore) Create(ctx context.Context, reviewer model.Reviewer) (*model.Reviewer, error) {
	if err := getDB(ctx, r.db).Create(&reviewer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &reviewer, nil
}

// AdjustReputation applies delta in a single-row atomic update.
func (r *ReviewerStore) AdjustReputation(ctx context.Context, id string, delta int64) error {
	result := getDB(ctx, r.db).Model(&model.Reviewer{}).Where("id = ?", id).
		UpdateColumn("reputation", gorm.Expr("reputation + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
