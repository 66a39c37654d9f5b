package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

type Reroute interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Reroute, error)
	GetByAnswerID(ctx context.Context, answerID uuid.UUID) (*model.Reroute, error)
	Create(ctx context.Context, reroute model.Reroute) (*model.Reroute, error)
	AppendEntry(ctx context.Context, reroute *model.Reroute, entry model.RerouteEntry) error
	UpdateLastEntry(ctx context.Context, entry *model.RerouteEntry, expectedStatus model.RerouteStatus, expectedUpdatedAt time.Time) error
}

type RerouteStore struct {
	db *gorm.DB
}

// Make sure we conform to Reroute interface
var _ Reroute = (*RerouteStore)(nil)

func NewRerouteStore(db *gorm.DB) Reroute {
	return &RerouteStore{db: db}
}

func (r *RerouteStore) Get(ctx context.Context, id uuid.UUID) (*model.Reroute, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *RerouteStore) GetByAnswerID(ctx context.Context, answerID uuid.UUID) (*model.Reroute, error) {
	return r.first(ctx, "answer_id = ?", answerID)
}

func (r *RerouteStore) first(ctx context.Context, query string, args ...any) (*model.Reroute, error) {
	var reroute model.Reroute
	result := getDB(ctx, r.db).Preload("Entries", orderBySeq).Where(query, args...).First(&reroute)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &reroute, nil
}

func (r *RerouteStore) Create(ctx context.Context, reroute model.Reroute) (*model.Reroute, error) {
	if reroute.ID == uuid.Nil {
		reroute.ID = uuid.New()
	}
	for i := range reroute.Entries {
		reroute.Entries[i].RerouteID = reroute.ID
		reroute.Entries[i].Seq = i
	}
	if err := getDB(ctx, r.db).Create(&reroute).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &reroute, nil
}

func (r *RerouteStore) AppendEntry(ctx context.Context, reroute *model.Reroute, entry model.RerouteEntry) error {
	db := getDB(ctx, r.db)

	entry.ID = 0
	entry.RerouteID = reroute.ID
	entry.Seq = len(reroute.Entries)
	if err := db.Create(&entry).Error; err != nil {
		return err
	}
	if err := db.Model(&model.Reroute{}).Where("id = ?", reroute.ID).UpdateColumn("updated_at", entry.UpdatedAt).Error; err != nil {
		return err
	}

	reroute.Entries = append(reroute.Entries, entry)
	reroute.UpdatedAt = entry.UpdatedAt
	return nil
}

// UpdateLastEntry rewrites the decision fields of the active entry, provided it
// still carries the status and stamp it was read with. ErrStaleVersion is
// returned when the row changed in between.
func (r *RerouteStore) UpdateLastEntry(ctx context.Context, entry *model.RerouteEntry, expectedStatus model.RerouteStatus, expectedUpdatedAt time.Time) error {
	db := getDB(ctx, r.db)

	result := db.Model(&model.RerouteEntry{}).
		Where("id = ? AND status = ? AND updated_at = ?", entry.ID, expectedStatus, expectedUpdatedAt).
		UpdateColumns(map[string]any{
			"status":           entry.Status,
			"rejection_reason": entry.RejectionReason,
			"answer_id":        entry.AnswerID,
			"updated_at":       entry.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}

	return db.Model(&model.Reroute{}).Where("id = ?", entry.RerouteID).UpdateColumn("updated_at", entry.UpdatedAt).Error
}
