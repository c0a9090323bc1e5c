package xcontext

import (
	"context"

	"gorm.io/gorm"
)

type dbTransaction struct {
	tx     *gorm.DB
	nested bool
	done   bool
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the running transaction if the context has one, otherwise the
// plain database handle.
func DB(ctx context.Context) *gorm.DB {
	if t, ok := ctx.Value(dbTxKey{}).(*dbTransaction); ok && !t.done {
		return t.tx.WithContext(ctx)
	}

	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return nil
	}

	return db.WithContext(ctx)
}

// WithDBTransaction begins a transaction and returns a context whose DB()
// is that transaction. Calling it again on a transactional context joins the
// outer transaction; only the outermost commit or rollback takes effect.
func WithDBTransaction(ctx context.Context) context.Context {
	if t, ok := ctx.Value(dbTxKey{}).(*dbTransaction); ok && !t.done {
		return context.WithValue(ctx, dbTxKey{}, &dbTransaction{tx: t.tx, nested: true})
	}

	tx := DB(ctx).Begin()
	return context.WithValue(ctx, dbTxKey{}, &dbTransaction{tx: tx})
}

func WithCommitDBTransaction(ctx context.Context) error {
	t, ok := ctx.Value(dbTxKey{}).(*dbTransaction)
	if !ok || t.done {
		return nil
	}

	t.done = true
	if t.nested {
		return nil
	}

	return t.tx.Commit().Error
}

func WithRollbackDBTransaction(ctx context.Context) {
	t, ok := ctx.Value(dbTxKey{}).(*dbTransaction)
	if !ok || t.done {
		return
	}

	t.done = true
	if !t.nested {
		t.tx.Rollback()
	}
}
