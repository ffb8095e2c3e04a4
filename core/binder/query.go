package binder

import "net/http"

// Query returns a binder that fills struct fields from URL query
// parameters, matched by `query:"name"` tags (default: lowercased field
// name; "-" skips). Slices accept repeated parameters and
// comma-separated values; pointer fields stay nil when the parameter is
// absent.
func Query() Binder {
	return func(r *http.Request, v any) error {
		return bindValues(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}
