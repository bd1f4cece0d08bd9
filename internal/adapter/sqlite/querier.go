package sqlite

import (
	"context"
	"database/sql"
)

// Querier is the common interface implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txCtxKey struct{}

type ctxTx struct {
	db *sql.DB
	tx *sql.Tx
}

func withTx(ctx context.Context, db *sql.DB, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, ctxTx{db: db, tx: tx})
}

// txFromCtx returns the transaction opened on db, if the context carries one.
// Transactions of other databases are ignored.
func txFromCtx(ctx context.Context, db *sql.DB) (*sql.Tx, bool) {
	v, ok := ctx.Value(txCtxKey{}).(ctxTx)
	if !ok || v.db != db {
		return nil, false
	}
	return v.tx, true
}

// QuerierFromCtx returns the transaction from context if present,
// otherwise returns the database.
func QuerierFromCtx(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := txFromCtx(ctx, db); ok {
		return tx
	}
	return db
}
