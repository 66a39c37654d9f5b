package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey int

const (
	transactionKey contextKey = iota
)

type Tx struct {
	txId int64
	tx   *gorm.DB
	log  *zap.SugaredLogger
}

func Commit(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok || tx == nil {
		return ctx, nil
	}

	newCtx := context.WithValue(ctx, transactionKey, nil)
	return newCtx, tx.Commit()
}

func Rollback(ctx context.Context) (context.Context, error) {
	tx, ok := ctx.Value(transactionKey).(*Tx)
	if !ok || tx == nil {
		return ctx, nil
	}

	newCtx := context.WithValue(ctx, transactionKey, nil)
	return newCtx, tx.Rollback()
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	return FromContext(ctx) != nil
}

func FromContext(ctx context.Context) *gorm.DB {
	if tx, found := ctx.Value(transactionKey).(*Tx); found && tx != nil {
		if dbTx, err := tx.Db(); err == nil {
			return dbTx
		}
	}
	return nil
}

func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	//look into the context to see if we have another tx
	if InTransaction(ctx) {
		return ctx, nil
	}

	// create a new session
	conn := db.Session(&gorm.Session{
		Context: ctx,
	})

	tx, err := newTransaction(conn)
	if err != nil {
		return ctx, err
	}

	ctx = context.WithValue(ctx, transactionKey, tx)
	return ctx, nil
}

func newTransaction(db *gorm.DB) (*Tx, error) {
	// must call begin on 'db', which is Gorm.
	tx := db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	// current transaction ID set by postgres.  these are *not* distinct across time
	// and do get reset after postgres performs "vacuuming" to reclaim used IDs.
	var txid struct{ ID int64 }
	if tx.Dialector.Name() == "postgres" {
		tx.Raw("select txid_current() as id").Scan(&txid)
	}

	return &Tx{
		txId: txid.ID,
		tx:   tx,
		log:  zap.S().Named("store"),
	}, nil
}

func (t *Tx) Db() (*gorm.DB, error) {
	if t.tx != nil {
		return t.tx, nil
	}
	return nil, errors.New("transaction hasn't started yet")
}

func (t *Tx) Commit() error {
	if t.tx == nil {
		return errors.New("transaction hasn't started yet")
	}

	if err := t.tx.Commit().Error; err != nil {
		t.log.Errorf("failed to commit transaction %d: %v", t.txId, err)
		return err
	}
	t.log.Debugf("transaction %d commited", t.txId)
	t.tx = nil // in case we call commit twice
	return nil
}

func (t *Tx) Rollback() error {
	if t.tx == nil {
		return errors.New("transaction hasn't started yet")
	}

	if err := t.tx.Rollback().Error; err != nil {
		t.log.Errorf("failed to rollback transaction %d: %v", t.txId, err)
		return err
	}
	t.tx = nil // in case we call commit twice

	t.log.Debugf("transaction %d rollback", t.txId)
	return nil
}
