package binder

import "net/http"

// Binder populates v from some part of the request (path, query, or
// body). Binders that do not apply to the request return
// ErrBinderNotApplicable so callers can chain them.
type Binder func(r *http.Request, v any) error
