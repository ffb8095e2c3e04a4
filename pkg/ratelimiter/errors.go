package ratelimiter

import "errors"

var (
	// ErrInvalidConfig reports a zero or negative bucket parameter.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTokenCount reports a negative token request.
	ErrInvalidTokenCount = errors.New("invalid token count")

	// ErrContextCancelled reports a check abandoned before reaching the
	// store.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrStoreUnavailable wraps store failures (Redis down, script
	// errors) so callers can fail open or closed deliberately.
	ErrStoreUnavailable = errors.New("store unavailable")
)
