// Package logger builds slog loggers for the service and supplies the
// attribute helpers the rest of the codebase logs with.
//
//	log := logger.New(logger.WithProduction("daybook"))
//	log.Info("server ready", logger.Component("server"))
//
// WithDevelopment selects debug-level text output, WithProduction
// info-level JSON; both stamp every record with an "app" attribute.
// WithContextExtractors decorates the handler so request-scoped values
// (a request ID, a user ID) are pulled from the context on every
// *Context call.
//
// The attr helpers (Error, Component, RequestID, ...) fix the keys used
// across the codebase and return an empty slog.Attr for nil or empty
// input, which slog drops, so call sites skip the nil checks:
//
//	log.ErrorContext(ctx, "session sweep failed",
//		logger.Component("session"),
//		logger.Error(err), // fine when err is nil
//	)
package logger
