// Package postgres implements the core store interfaces (user.Store,
// session.Store, totp.Store, permission.Store) plus audio attachment
// metadata on PostgreSQL via pgx.
//
// Transactions propagate through the context: DB.RunInTx opens one,
// attaches it with pg.WithTx, and every store call inside picks it up,
// so multi-store operations commit atomically without the stores
// knowing about each other. Nested RunInTx calls join the outer
// transaction.
//
// The schema lives in migrations/ as embedded goose SQL, applied on
// boot through pg.MigrateFS.
package postgres
