// Package binder maps HTTP request data onto Go structs: JSON bodies,
// query parameters, and path parameters, each behind the common Binder
// function type so they can be chained.
//
// The JSON binder is strict: it validates Content-Type, caps the body
// at DefaultMaxJSONSize, rejects unknown fields and trailing documents,
// and strips control characters from bound strings. Query and path
// binding convert to string, integer, float, and bool fields (plus
// slices and pointers of those), matched by `query:"name"` and
// `path:"name"` tags:
//
//	type ListEntriesRequest struct {
//		UserID string   `path:"id"`
//		Page   int      `query:"page"`
//		Tags   []string `query:"tags"` // ?tags=a&tags=b or ?tags=a,b
//	}
//
//	var req ListEntriesRequest
//	if err := binder.Path(paramExtractor)(r, &req); err != nil { ... }
//	if err := binder.Query()(r, &req); err != nil { ... }
//
// Failures wrap a sentinel per source (ErrFailedToParseJSON,
// ErrFailedToParseQuery, ErrFailedToParsePath) for errors.Is checks;
// a binder that does not apply to the request returns
// ErrBinderNotApplicable so chained callers can skip it.
package binder
