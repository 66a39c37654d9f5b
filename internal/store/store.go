package store

import (
	"context"

	"github.com/reviewdesk/review-engine/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Question() Question
	Answer() Answer
	Reviewer() Reviewer
	Submission() Submission
	Reroute() Reroute
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	question   Question
	answer     Answer
	reviewer   Reviewer
	submission Submission
	reroute    Reroute
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:         db,
		question:   NewQuestionStore(db),
		answer:     NewAnswerStore(db),
		reviewer:   NewReviewerStore(db),
		submission: NewSubmissionStore(db),
		reroute:    NewRerouteStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Question() Question {
	return s.question
}

func (s *DataStore) Answer() Answer {
	return s.answer
}

func (s *DataStore) Reviewer() Reviewer {
	return s.reviewer
}

func (s *DataStore) Submission() Submission {
	return s.submission
}

func (s *DataStore) Reroute() Reroute {
	return s.reroute
}

// InitialMigration creates the schema from the models. Postgres deployments
// apply the goose migrations instead.
func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.Reviewer{},
		&model.Question{},
		&model.Answer{},
		&model.Submission{},
		&model.HistoryEntry{},
		&model.Reroute{},
		&model.RerouteEntry{},
	)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
