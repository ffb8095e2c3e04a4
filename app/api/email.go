package api

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/daybook/core/email"
	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/response"
	"github.com/dmitrymomot/daybook/core/user"
)

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// sendVerificationMail issues a signed token for the user and mails the
// confirmation link.
func sendVerificationMail(ctx context.Context, d Deps, u *user.User) error {
	token, err := d.Tokens.Issue(u.ID)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/auth/email/verify?token=%s", d.BaseURL, token)
	return d.Mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:   u.Email,
		Subject:  fmt.Sprintf("Confirm your %s email address", d.AppName),
		BodyHTML: fmt.Sprintf(`<p>Confirm this address for your %s account: <a href="%s">%s</a>. The link expires in 24 hours.</p>`, d.AppName, link, link),
		Tag:      "email-verification",
	})
}

func sendEmailHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		u := initiator(ctx).User
		if u.Email == "" {
			return response.Error(response.ErrBadRequest.WithMessage("Account has no email address"))
		}
		if u.EmailVerified {
			return response.Error(response.ErrConflict.WithMessage("Email already verified"))
		}
		if err := sendVerificationMail(ctx, d, u); err != nil {
			return response.Error(response.ErrInternalServerError.WithError(err))
		}
		return response.NoContent()
	}
}

func verifyEmailHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var req VerifyEmailRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		userID, err := d.Tokens.Parse(req.Token)
		if err != nil {
			return errorResponse(err)
		}
		if err := d.UserStore.SetEmailVerified(ctx, userID); err != nil {
			return errorResponse(err)
		}
		return response.NoContent()
	}
}
