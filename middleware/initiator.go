package middleware

import (
	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/response"
	"github.com/dmitrymomot/daybook/core/session"
)

// initiatorContextKey is used as a key for storing the initiator in request context.
type initiatorContextKey struct{}

// InitiatorConfig configures the initiator middleware.
type InitiatorConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// Manager resolves session cookies to initiators
	Manager *session.Manager
	// AllowUnverified lets requests with a 2FA-pending session through,
	// carrying the session so the verify endpoint can promote it
	AllowUnverified bool
}

// Initiator creates middleware that resolves the session cookie to an
// authenticated, verified user and stores the result in the context.
// Anything short of a verified session is rejected with the stable
// error name for its lookup outcome.
func Initiator[C handler.Context](mgr *session.Manager) handler.Middleware[C] {
	return InitiatorWithConfig[C](InitiatorConfig{Manager: mgr})
}

// InitiatorWithConfig creates the initiator middleware with custom configuration.
// Panics if no session manager is provided.
func InitiatorWithConfig[C handler.Context](cfg InitiatorConfig) handler.Middleware[C] {
	if cfg.Manager == nil {
		panic("initiator middleware: session manager is required")
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			initiator, err := cfg.Manager.Lookup(ctx.Request().Context(), ctx.Request())
			if err != nil {
				return response.Error(response.ErrInternalServerError.WithError(err))
			}

			switch initiator.Status {
			case session.Found:
			case session.SessionUnverified:
				if !cfg.AllowUnverified {
					return response.Error(InitiatorError(initiator.Status))
				}
			default:
				return response.Error(InitiatorError(initiator.Status))
			}

			ctx.SetValue(initiatorContextKey{}, initiator)
			return next(ctx)
		}
	}
}

// GetInitiator retrieves the resolved initiator from the request context.
func GetInitiator(ctx handler.Context) (session.Initiator, bool) {
	initiator, ok := ctx.Value(initiatorContextKey{}).(session.Initiator)
	return initiator, ok
}

// InitiatorError maps a lookup outcome to its wire error: the stable
// outcome name as the code, 404 for missing session or owner, 401 for
// everything else.
func InitiatorError(st session.Status) response.HTTPError {
	e := response.ErrUnauthorized
	if st == session.SessionNotFound || st == session.UserNotFound {
		e = response.ErrNotFound
	}
	e.Code = st.String()
	return e
}
