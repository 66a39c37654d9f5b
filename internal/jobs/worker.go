package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reviewdesk/review-engine/internal/embedding"
	"github.com/reviewdesk/review-engine/internal/store"
	"github.com/reviewdesk/review-engine/internal/store/model"
	"github.com/reviewdesk/review-engine/pkg/log"
)

// Allocator builds the initial review queue of a question.
type Allocator interface {
	Initialize(ctx context.Context, questionID uuid.UUID) (*model.Submission, error)
}

type AllocationWorker struct {
	store     store.Store
	allocator Allocator
	embedder  embedding.Embedder
	logger    *log.StructuredLogger
}

func NewAllocationWorker(s store.Store, allocator Allocator, embedder embedding.Embedder) *AllocationWorker {
	if embedder == nil {
		embedder = embedding.NewNoopEmbedder()
	}
	return &AllocationWorker{
		store:     s,
		allocator: allocator,
		embedder:  embedder,
		logger:    log.NewDebugLogger("allocation_worker"),
	}
}

func (w *AllocationWorker) Timeout() time.Duration {
	return ItemTimeout
}

// Work allocates a single question. A failed question without submission state
// is deleted so that no half initialized question stays behind.
func (w *AllocationWorker) Work(ctx context.Context, questionID uuid.UUID) (err error) {
	tracer := w.logger.WithContext(ctx).
		Operation("allocate_question").
		WithUUID("question_id", questionID).
		Build()

	itemCtx, cancel := context.WithTimeout(ctx, w.Timeout())
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("allocation of question %s panicked: %v", questionID, r)
		}
		if err != nil {
			tracer.Error(err).Log()
			deleted, cerr := w.compensate(context.WithoutCancel(ctx), questionID)
			if cerr != nil {
				tracer.Error(cerr).WithString("step", "compensate").Log()
				return
			}
			tracer.Step("compensated").WithBool("question_deleted", deleted).Log()
		}
	}()

	if err := itemCtx.Err(); err != nil {
		return err
	}

	question, err := w.store.Question().Get(itemCtx, questionID)
	if err != nil {
		return fmt.Errorf("failed to load question %s: %w", questionID, err)
	}

	if w.embedder.Enabled() {
		vec, err := w.embedder.Embed(itemCtx, question.Text)
		if err != nil {
			return fmt.Errorf("failed to embed question %s: %w", questionID, err)
		}
		if err := w.store.Question().UpdateEmbedding(itemCtx, questionID, vec); err != nil {
			return fmt.Errorf("failed to store embedding of question %s: %w", questionID, err)
		}
		tracer.Step("embedded").WithInt("dimensions", len(vec)).Log()
	}

	// Check for cancellation before allocating
	if err := itemCtx.Err(); err != nil {
		return err
	}

	sub, err := w.allocator.Initialize(itemCtx, questionID)
	if err != nil {
		return err
	}

	tracer.Success().WithInt("queue_size", len(sub.Queue)).Log()
	return nil
}

// compensate deletes a question left without submission state. Questions that
// already have a submission are live and are never removed here.
func (w *AllocationWorker) compensate(ctx context.Context, questionID uuid.UUID) (bool, error) {
	txCtx, err := w.store.NewTransactionContext(ctx)
	if err != nil {
		return false, err
	}

	if _, err := w.store.Submission().GetByQuestionID(txCtx, questionID); err == nil {
		_, _ = store.Rollback(txCtx)
		return false, nil
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		_, _ = store.Rollback(txCtx)
		return false, err
	}

	if err := w.store.Question().Delete(txCtx, questionID); err != nil {
		_, _ = store.Rollback(txCtx)
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	_, err = store.Commit(txCtx)
	return err == nil, err
}
