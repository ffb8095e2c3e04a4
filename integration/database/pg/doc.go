// Package pg manages the PostgreSQL connection pool: pgxpool setup
// with retry, goose migrations, a pool health check, and helpers for
// classifying pgx errors and carrying a transaction through a context.
//
// Connect dials with exponential backoff and verifies the pool with a
// ping before returning, so a service restarting alongside the
// database does not crash-loop. Configuration comes from the
// environment (PG_CONN_URL plus pool-tuning knobs, see Config).
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil { ... }
//
// Migrate applies the SQL files under cfg.MigrationsPath with goose;
// MigrateFS does the same from an embedded fs.FS. Healthcheck returns
// a ping function shaped for the readiness endpoint.
//
// Stores compose transactional work with WithTx/TxFromContext: a
// service opens the transaction, stashes it in the context, and every
// store call inside the closure picks it up transparently. The
// IsNotFoundError, IsDuplicateKeyError, and IsForeignKeyViolationError
// predicates translate pgx and PostgreSQL error codes so stores can
// map them to domain errors without importing pgconn everywhere.
package pg
