package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/daybook/integration/database/pg"
)

// DB wraps a pgx pool with context-propagated transactions. Stores ask
// the context for an active transaction first, so any mix of store
// calls inside RunInTx commits atomically.
type DB struct {
	pool *pgxpool.Pool
}

// New creates the storage root over a connection pool.
func New(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Pool exposes the underlying pool for health checks.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// querier is the query surface shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn returns the ambient transaction when one is on the context,
// otherwise the pool.
func (db *DB) conn(ctx context.Context) querier {
	if tx, ok := pg.TxFromContext(ctx); ok {
		return tx
	}
	return db.pool
}

// RunInTx executes fn inside a transaction carried on the context.
// Nested calls join the outer transaction rather than opening another.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := pg.TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(pg.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
