package binder

import "errors"

var (
	// ErrUnsupportedMediaType reports a Content-Type the binder does not
	// handle.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrFailedToParseJSON reports an invalid or oversized JSON body.
	ErrFailedToParseJSON = errors.New("failed to parse JSON request body")

	// ErrFailedToParseQuery reports a query parameter that could not be
	// converted to the target field type.
	ErrFailedToParseQuery = errors.New("failed to parse query parameters")

	// ErrFailedToParsePath reports a path parameter that could not be
	// converted to the target field type.
	ErrFailedToParsePath = errors.New("failed to parse path parameters")

	// ErrMissingContentType reports a body request without a Content-Type
	// header.
	ErrMissingContentType = errors.New("missing content type")

	// ErrBinderNotApplicable signals the binder does not apply to this
	// request; chained callers skip it.
	ErrBinderNotApplicable = errors.New("binder not applicable for this request")
)
