package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/logger"
	"github.com/dmitrymomot/daybook/core/response"
	"github.com/dmitrymomot/daybook/core/session"
	"github.com/dmitrymomot/daybook/core/user"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type VerifySessionRequest struct {
	Method string `json:"method" validate:"required,oneof=Totp TotpHash"`
	Value  string `json:"value" validate:"required"`
}

type ChangePasswordRequest struct {
	Current string `json:"current" validate:"required"`
	New     string `json:"new" validate:"required,min=8,max=128"`
}

type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func userResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

func registerHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var req RegisterRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		u, err := d.Users.Register(ctx, user.RegisterParams{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return errorResponse(err)
		}

		if u.Email != "" {
			// Best effort: a failed delivery must not lose the account.
			if err := sendVerificationMail(ctx, d, u); err != nil {
				d.Logger.ErrorContext(ctx, "failed to send verification email",
					logger.ID("user_id", u.ID), logger.Error(err))
			}
		}

		return response.JSONWithStatus(userResponse(u), http.StatusCreated)
	}
}

func loginHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var req LoginRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		u, err := d.Users.Authenticate(ctx, req.Username, req.Password)
		if err != nil {
			return errorResponse(err)
		}

		sess, hint, err := d.Sessions.Issue(ctx, u)
		if err != nil {
			return errorResponse(err)
		}
		cookie := d.Sessions.Cookie(sess)

		// A pending second factor answers 401 with the hint so clients
		// know to collect a code; the cookie is already usable for the
		// verify endpoint.
		if hint != nil {
			return withCookie(cookie, response.JSONWithStatus(hint, http.StatusUnauthorized))
		}
		return withCookie(cookie, response.JSON(userResponse(u)))
	}
}

func verifySessionHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var req VerifySessionRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		init := initiator(ctx)
		if err := d.Sessions.Verify(ctx, init.Session, session.VerifyMethod(req.Method), req.Value); err != nil {
			return errorResponse(err)
		}

		u, err := d.Users.Find(ctx, init.Session.Owner)
		if err != nil {
			return errorResponse(err)
		}
		return response.JSON(userResponse(u))
	}
}

func logoutHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		init, err := d.Sessions.Lookup(ctx, ctx.Request())
		if err != nil {
			return response.Error(response.ErrInternalServerError.WithError(err))
		}

		// Logout is tolerant: any state that still names a stored
		// session gets its row deleted; the rest just clear the cookie.
		if init.Session != nil {
			if err := d.Sessions.Drop(ctx, init.Session.Token); err != nil {
				return response.Error(response.ErrInternalServerError.WithError(err))
			}
		}
		return withCookie(d.Sessions.ExpiredCookie(), response.NoContent())
	}
}

func whoamiHandler() handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		return response.JSON(userResponse(initiator(ctx).User))
	}
}

func changePasswordHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var req ChangePasswordRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		init := initiator(ctx)
		if err := d.Users.ChangePassword(ctx, init.User.ID, req.Current, req.New); err != nil {
			return errorResponse(err)
		}
		return response.NoContent()
	}
}
