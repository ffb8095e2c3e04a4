package router

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/daybook/core/handler"
)

// routeError is a dispatch failure that knows its HTTP status, so
// error handlers (including response.JSONErrorHandler) render router
// failures with the right code instead of a blanket 500.
type routeError struct {
	msg    string
	status int
}

func (e *routeError) Error() string   { return e.msg }
func (e *routeError) StatusCode() int { return e.status }

// Dispatch errors passed to the error handler.
var (
	ErrNotFound         error = &routeError{"not found", http.StatusNotFound}
	ErrMethodNotAllowed error = &routeError{"method not allowed", http.StatusMethodNotAllowed}
	ErrNilResponse      error = &routeError{"nil response", http.StatusInternalServerError}
)

// Registration errors; all of these panic, since a bad route table is
// a programming error caught at startup.
var (
	ErrNoContextFactory = fmt.Errorf("no context factory provided")
	ErrInvalidMethod    = fmt.Errorf("invalid http method")
	ErrNilRouter        = fmt.Errorf("nil router")
	ErrNilSubrouter     = fmt.Errorf("nil subrouter")
	ErrInvalidPattern   = fmt.Errorf("invalid route path pattern")
	ErrWildcardPosition = fmt.Errorf("wildcard must be the last segment")
	ErrDuplicateParam   = fmt.Errorf("duplicate parameter name")
)

// statusCode lets errors carry their own HTTP status.
type statusCode interface {
	StatusCode() int
}

// defaultErrorHandler writes plain-text errors; routers that want JSON
// bodies install response.JSONErrorHandler instead.
func defaultErrorHandler[C handler.Context](ctx C, err error) {
	w := ctx.ResponseWriter()
	if ww, ok := w.(*responseWriter); ok && ww.Written() {
		return
	}

	status := http.StatusInternalServerError
	if sc, ok := err.(statusCode); ok {
		status = sc.StatusCode()
	}
	http.Error(w, err.Error(), status)
}

// PanicError is the error type handed to the error handler when a
// handler panics. It exposes the panic value and the stack captured at
// the panic point.
type PanicError interface {
	error
	Value() any
	Stack() []byte
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }
func (e *panicError) Value() any    { return e.value }
func (e *panicError) Stack() []byte { return e.stack }

// Unwrap lets errors.Is/As see through to a panicked error value.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
