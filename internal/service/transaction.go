package service

import (
	"context"

	"github.com/reviewdesk/review-engine/internal/store"
)

// withTransaction runs fn inside the transaction carried by ctx, or inside a new
// one that is committed when fn succeeds.
func withTransaction(ctx context.Context, s store.Store, fn func(ctx context.Context) error) error {
	if store.InTransaction(ctx) {
		return fn(ctx)
	}

	txCtx, err := s.NewTransactionContext(ctx)
	if err != nil {
		return classify(err)
	}

	defer func() {
		if r := recover(); r != nil {
			_, _ = store.Rollback(txCtx)
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		_, _ = store.Rollback(txCtx)
		return err
	}

	if _, err := store.Commit(txCtx); err != nil {
		return classify(err)
	}
	return nil
}
