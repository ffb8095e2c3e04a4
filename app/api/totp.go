package api

import (
	"net/http"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/response"
	"github.com/dmitrymomot/daybook/core/totp"
	"github.com/dmitrymomot/daybook/pkg/qrcode"
)

type EnrollTotpRequest struct {
	Algo   string `json:"algo" validate:"omitempty,oneof=SHA1 SHA256 SHA512"`
	Digits int    `json:"digits" validate:"omitempty,min=1,max=10"`
	Step   int    `json:"step" validate:"omitempty,min=1"`
}

type EnrollTotpResponse struct {
	Algo         string `json:"algo"`
	Digits       int    `json:"digits"`
	Step         int    `json:"step"`
	SecretBase32 string `json:"secret_base32"`
}

type ActivateTotpRequest struct {
	Code string `json:"code" validate:"required"`
}

type BackupCodesResponse struct {
	Hashes []string `json:"hashes"`
}

// qrSize is the pixel edge of the provisioning QR PNG.
const qrSize = 256

func enrollTotpHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var req EnrollTotpRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		enrollment, err := d.Totp.Enroll(ctx, initiator(ctx).User.ID, totp.EnrollParams{
			Algo:   totp.Algo(req.Algo),
			Digits: req.Digits,
			Step:   req.Step,
		})
		if err != nil {
			return errorResponse(err)
		}

		s := enrollment.Settings
		return response.JSONWithStatus(EnrollTotpResponse{
			Algo:         string(s.Algo),
			Digits:       s.Digits,
			Step:         s.Step,
			SecretBase32: s.SecretBase32(),
		}, http.StatusCreated)
	}
}

// totpQRHandler renders the otpauth:// URI of a pending enrollment as a
// PNG, for authenticator apps that scan instead of typing the secret.
func totpQRHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		init := initiator(ctx)
		enrollment, err := d.Totp.Enrollment(ctx, init.User.ID)
		if err != nil {
			return errorResponse(err)
		}
		if enrollment.Verified {
			return errorResponse(totp.ErrTotpAlreadyVerified)
		}

		uri := totp.KeyURI(d.AppName, init.User.Username, enrollment.Settings)
		png, err := qrcode.Generate(uri, qrSize)
		if err != nil {
			return response.Error(response.ErrInternalServerError.WithError(err))
		}
		return response.Bytes(png, "image/png")
	}
}

func activateTotpHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		var req ActivateTotpRequest
		if err := ctx.Bind(&req); err != nil {
			return bindError(err)
		}

		codes, err := d.Totp.Activate(ctx, initiator(ctx).User.ID, req.Code)
		if err != nil {
			return errorResponse(err)
		}
		return response.JSON(BackupCodesResponse{Hashes: codes})
	}
}

func disableTotpHandler(d Deps) handler.HandlerFunc[*Context] {
	return func(ctx *Context) handler.Response {
		if err := d.Totp.Disable(ctx, initiator(ctx).User.ID); err != nil {
			return errorResponse(err)
		}
		return response.NoContent()
	}
}
