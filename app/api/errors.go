package api

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/permission"
	"github.com/dmitrymomot/daybook/core/response"
	"github.com/dmitrymomot/daybook/core/session"
	"github.com/dmitrymomot/daybook/core/totp"
	"github.com/dmitrymomot/daybook/core/user"
	"github.com/dmitrymomot/daybook/storage/postgres"
)

// errPermissionDenied is the authorization failure. 401 rather than 403
// keeps the whole auth taxonomy on a single status family.
var errPermissionDenied = withCode(response.ErrUnauthorized, "PermissionDenied")

// withCode copies a base HTTPError and sets its stable code string.
func withCode(e response.HTTPError, code string) response.HTTPError {
	e.Code = code
	return e
}

// errorResponse converts a domain error into its wire shape. The code
// strings are stable names clients branch on; anything unmapped falls
// through to the router's 500 handler.
func errorResponse(err error) handler.Response {
	switch {
	case errors.Is(err, user.ErrUsernameNotFound):
		return response.Error(withCode(response.ErrNotFound, "UsernameNotFound"))
	case errors.Is(err, user.ErrInvalidPassword):
		return response.Error(withCode(response.ErrUnauthorized, "InvalidPassword"))
	case errors.Is(err, user.ErrUserNotFound):
		return response.Error(withCode(response.ErrNotFound, "UserNotFound"))
	case errors.Is(err, user.ErrUsernameTaken):
		return response.Error(response.ErrConflict.WithMessage("Username already exists"))
	case errors.Is(err, user.ErrEmailTaken):
		return response.Error(response.ErrConflict.WithMessage("Email already exists"))
	case errors.Is(err, user.ErrInvalidVerificationToken):
		return response.Error(response.ErrUnauthorized.WithMessage("Invalid verification token"))
	case errors.Is(err, totp.ErrTotpNotFound):
		return response.Error(withCode(response.ErrNotFound, "TotpNotFound"))
	case errors.Is(err, totp.ErrTotpUnverified):
		return response.Error(withCode(response.ErrUnauthorized, "TotpUnverified"))
	case errors.Is(err, totp.ErrTotpAlreadyVerified):
		return response.Error(withCode(response.ErrConflict, "TotpAlreadyVerified"))
	case errors.Is(err, totp.ErrInvalidTotpCode):
		return response.Error(withCode(response.ErrUnauthorized, "InvalidTotpCode"))
	case errors.Is(err, totp.ErrTotpHashInvalid):
		return response.Error(withCode(response.ErrUnauthorized, "TotpHashInvalid"))
	case errors.Is(err, totp.ErrInvalidAlgo),
		errors.Is(err, totp.ErrInvalidDigits),
		errors.Is(err, totp.ErrInvalidStep):
		return response.Error(response.ErrBadRequest.WithError(err))
	case errors.Is(err, session.ErrInvalidVerifyMethod):
		return response.Error(response.ErrBadRequest.WithMessage("Unknown verification method"))
	case errors.Is(err, permission.ErrUnknownSubject):
		return response.Error(withCode(response.ErrNotFound, "UserNotFound"))
	case errors.Is(err, permission.ErrGroupNotFound):
		return response.Error(withCode(response.ErrNotFound, "GroupNotFound"))
	case errors.Is(err, permission.ErrGroupNameTaken):
		return response.Error(response.ErrConflict.WithMessage("Group name already exists"))
	case errors.Is(err, postgres.ErrAudioNotFound):
		return response.Error(withCode(response.ErrNotFound, "AudioNotFound"))
	}

	var tupleErr *permission.ValidationError
	if errors.As(err, &tupleErr) {
		return response.Error(response.ErrBadRequest.WithDetails(map[string]any{
			"tuples": tupleErr.Tuples,
		}))
	}

	return response.Error(response.ErrInternalServerError.WithError(err))
}

// bindError shapes body-parsing and field-validation failures.
func bindError(err error) handler.Response {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		return response.Error(response.ErrBadRequest.WithDetails(details))
	}
	return response.Error(response.ErrBadRequest.WithMessage("Failed to parse request").WithError(err))
}
