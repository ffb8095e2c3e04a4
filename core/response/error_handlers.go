package response

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/daybook/core/handler"
)

// statusCode lets errors outside this package carry an HTTP status,
// the router's not-found and method-not-allowed errors among them.
type statusCode interface {
	StatusCode() int
}

// convertToHTTPError normalizes any error into an HTTPError: HTTPErrors
// pass through, errors with a StatusCode map to the matching catalog
// entry, everything else becomes a 500.
func convertToHTTPError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	status := http.StatusInternalServerError
	if sc, ok := err.(statusCode); ok {
		status = sc.StatusCode()
	}

	baseErr, ok := httpErrorsByStatus[status]
	if !ok {
		baseErr = ErrInternalServerError
	}
	return baseErr.WithError(err)
}

// ErrorHandler renders errors as plain text with the resolved status.
func ErrorHandler[C handler.Context](ctx C, err error) {
	httpErr := convertToHTTPError(err)
	Render(ctx, StringWithStatus(httpErr.Error(), httpErr.Status))
}

// JSONErrorHandler renders errors as structured JSON with the resolved
// status.
func JSONErrorHandler[C handler.Context](ctx C, err error) {
	httpErr := convertToHTTPError(err)
	Render(ctx, JSONWithStatus(httpErr, httpErr.Status))
}
