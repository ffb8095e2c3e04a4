package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/daybook/core/binder"
)

// validate holds the shared validator instance; struct rules live in
// `validate` tags on the request types.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Context is the request context for the API: it delegates to the
// request's context and adds JSON binding with validation.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	params map[string]string
}

// Deadline returns the time when work done on behalf of this context should be canceled.
func (c *Context) Deadline() (deadline time.Time, ok bool) {
	return c.r.Context().Deadline()
}

// Done returns a channel that's closed when work done on behalf of this context should be canceled.
func (c *Context) Done() <-chan struct{} {
	return c.r.Context().Done()
}

// Err returns a non-nil error value after Done is closed.
func (c *Context) Err() error {
	return c.r.Context().Err()
}

// Value returns the value associated with this context for key, or nil if no value is associated with key.
func (c *Context) Value(key any) any {
	return c.r.Context().Value(key)
}

// SetValue stores a value in the request's context.
func (c *Context) SetValue(key, val any) {
	ctx := context.WithValue(c.r.Context(), key, val)
	c.r = c.r.WithContext(ctx)
}

// Request returns the HTTP request associated with this context.
func (c *Context) Request() *http.Request {
	return c.r
}

// ResponseWriter returns the HTTP response writer associated with this context.
func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Param returns the value of the URL parameter for the given key.
func (c *Context) Param(key string) string {
	if c.params == nil {
		return ""
	}
	return c.params[key]
}

// Bind binds request data into v and validates it against the struct's
// `validate` tags. Path parameters are bound first, query parameters for
// GET/DELETE requests, and the JSON body for everything else.
func (c *Context) Bind(v any) error {
	if len(c.params) > 0 {
		pathBinder := binder.Path(func(r *http.Request, fieldName string) string {
			return c.Param(fieldName)
		})
		if err := pathBinder(c.r, v); err != nil && err != binder.ErrBinderNotApplicable {
			return err
		}
	}

	if c.r.Method == http.MethodGet || c.r.Method == http.MethodDelete {
		if err := binder.Query()(c.r, v); err != nil && err != binder.ErrBinderNotApplicable {
			return err
		}
		return validate.Struct(v)
	}

	if err := binder.JSON()(c.r, v); err != nil && err != binder.ErrBinderNotApplicable {
		return err
	}

	return validate.Struct(v)
}

// newContext creates a new Context instance.
func newContext(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	return &Context{
		w:      w,
		r:      r,
		params: params,
	}
}
