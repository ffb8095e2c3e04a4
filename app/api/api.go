package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/daybook/core/email"
	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/health"
	"github.com/dmitrymomot/daybook/core/permission"
	"github.com/dmitrymomot/daybook/core/response"
	"github.com/dmitrymomot/daybook/core/router"
	"github.com/dmitrymomot/daybook/core/session"
	"github.com/dmitrymomot/daybook/core/totp"
	"github.com/dmitrymomot/daybook/core/user"
	"github.com/dmitrymomot/daybook/integration/storage/s3"
	"github.com/dmitrymomot/daybook/middleware"
	"github.com/dmitrymomot/daybook/pkg/ratelimiter"
	"github.com/dmitrymomot/daybook/storage/postgres"
)

// maxAudioBytes caps raw audio uploads.
const maxAudioBytes = 16 << 20

// Deps collects everything the route table needs. The caller wires
// concrete stores and integrations; handlers only see these.
type Deps struct {
	Logger *slog.Logger

	Users       *user.Service
	UserStore   user.Store
	Sessions    *session.Manager
	Totp        *totp.Engine
	Permissions *permission.Engine

	Audio  *postgres.AudioStore
	Blobs  *s3.Storage
	Mailer email.EmailSender
	Tokens *user.VerificationTokens

	// AppName labels otpauth:// URIs and email subjects.
	AppName string
	// BaseURL prefixes verification links in outgoing mail.
	BaseURL string

	// LoginLimiter throttles the credential-bearing endpoints.
	// Optional; nil disables throttling (tests).
	LoginLimiter ratelimiter.RateLimiter

	// Readiness checks exposed on /ready.
	Ready []func(context.Context) error
}

// New assembles the API router: health probes, the auth surface, and
// the permission, group, and audio administration endpoints.
func New(d Deps) router.Router[*Context] {
	r := router.New[*Context](
		router.WithContextFactory(newContext),
		router.WithErrorHandler[*Context](response.JSONErrorHandler),
		router.WithLogger[*Context](d.Logger),
		router.WithMiddleware(
			middleware.RequestID[*Context](),
			middleware.ClientIP[*Context](),
			middleware.LoggingWithLogger[*Context](d.Logger),
		),
	)

	r.Get("/live", health.Liveness)
	r.Get("/ready", health.Readiness[*Context](d.Logger, d.Ready...))

	r.Post("/auth/register", registerHandler(d))
	r.Post("/auth/email/verify", verifyEmailHandler(d))

	// Credential-bearing endpoints share one token bucket per client IP.
	r.Group(func(throttled router.Router[*Context]) {
		if d.LoginLimiter != nil {
			throttled.Use(middleware.RateLimit[*Context](middleware.RateLimitConfig{
				Limiter:    d.LoginLimiter,
				SetHeaders: true,
			}))
		}
		throttled.Post("/auth/session", loginHandler(d))
		throttled.With(middleware.InitiatorWithConfig[*Context](middleware.InitiatorConfig{
			Manager:         d.Sessions,
			AllowUnverified: true,
		})).Post("/auth/session/verify", verifySessionHandler(d))
	})

	// Logout resolves the cookie itself so it can drop expired and
	// unverified sessions too.
	r.Delete("/auth/session", logoutHandler(d))

	// Everything below requires a verified initiator.
	r.Group(func(private router.Router[*Context]) {
		private.Use(middleware.Initiator[*Context](d.Sessions))

		private.Get("/auth/session", whoamiHandler())
		private.Post("/auth/change", changePasswordHandler(d))
		private.Post("/auth/email", sendEmailHandler(d))

		private.Post("/auth/totp", enrollTotpHandler(d))
		private.Get("/auth/totp/qr", totpQRHandler(d))
		private.Post("/auth/totp/verify", activateTotpHandler(d))
		private.Delete("/auth/totp", disableTotpHandler(d))

		private.Get("/users/{id}/permissions", listPermissionsHandler(d, permission.SubjectUsers))
		private.Put("/users/{id}/permissions", replacePermissionsHandler(d, permission.SubjectUsers))
		private.Get("/groups/{id}/permissions", listPermissionsHandler(d, permission.SubjectGroups))
		private.Put("/groups/{id}/permissions", replacePermissionsHandler(d, permission.SubjectGroups))

		private.Post("/groups", createGroupHandler(d))
		private.Delete("/groups/{id}", deleteGroupHandler(d))
		private.Put("/groups/{id}/users", replaceGroupMembersHandler(d))

		private.With(middleware.BodyLimitWithSize[*Context](maxAudioBytes)).
			Post("/audio", uploadAudioHandler(d))
		private.Get("/audio/{id}", downloadAudioHandler(d))
		private.Delete("/audio/{id}", deleteAudioHandler(d))
	})

	return r
}

// initiator pulls the resolved initiator out of the context. Routes
// behind the initiator middleware always have one.
func initiator(ctx *Context) session.Initiator {
	init, _ := middleware.GetInitiator(ctx)
	return init
}

// pathID parses a UUID route parameter.
func pathID(ctx *Context, key string) (uuid.UUID, error) {
	return uuid.Parse(ctx.Param(key))
}

// withCookie sets the cookie before the wrapped response renders.
func withCookie(c *http.Cookie, resp handler.Response) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		http.SetCookie(w, c)
		return resp(w, r)
	}
}

// requirePermission consults the engine and short-circuits with
// PermissionDenied. Engine failures stay 500s; authorization never
// fails open or silently.
func requirePermission(ctx *Context, d Deps, userID uuid.UUID, roll string, abilities []permission.Ability, resource *uuid.UUID) handler.Response {
	ok, err := d.Permissions.HasPermission(ctx, userID, roll, abilities, resource)
	if err != nil {
		return response.Error(response.ErrInternalServerError.WithError(err))
	}
	if !ok {
		return response.Error(errPermissionDenied)
	}
	return nil
}

// requireGroupPermission is the group-resource variant: it passes only
// on grants scoped to the target group.
func requireGroupPermission(ctx *Context, d Deps, userID uuid.UUID, roll string, abilities []permission.Ability, groupID uuid.UUID) handler.Response {
	ok, err := d.Permissions.HasGroupPermission(ctx, userID, roll, abilities, groupID)
	if err != nil {
		return response.Error(response.ErrInternalServerError.WithError(err))
	}
	if !ok {
		return response.Error(errPermissionDenied)
	}
	return nil
}
