package middleware

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/response"
)

// DefaultMaxBodySize caps request bodies at 4MB unless configured otherwise.
const DefaultMaxBodySize int64 = 4 << 20

// BodyLimitConfig configures the request body limit middleware.
type BodyLimitConfig struct {
	// Skip suppresses the limit for matching requests.
	Skip func(ctx handler.Context) bool

	// MaxSize is the maximum allowed body size in bytes
	// (default: DefaultMaxBodySize).
	MaxSize int64

	// ErrorHandler renders the rejection; contentLength is zero when the
	// request did not declare one (default: 413 with the limit in details).
	ErrorHandler func(ctx handler.Context, contentLength, maxSize int64) handler.Response
}

// BodyLimit rejects request bodies larger than DefaultMaxBodySize.
func BodyLimit[C handler.Context]() handler.Middleware[C] {
	return BodyLimitWithConfig[C](BodyLimitConfig{})
}

// BodyLimitWithSize rejects request bodies larger than maxSize bytes.
func BodyLimitWithSize[C handler.Context](maxSize int64) handler.Middleware[C] {
	return BodyLimitWithConfig[C](BodyLimitConfig{MaxSize: maxSize})
}

// BodyLimitWithConfig builds the body limit middleware. Requests with a
// declared Content-Length over the limit are rejected up front; the rest
// get their body wrapped so reads past the limit fail.
func BodyLimitWithConfig[C handler.Context](cfg BodyLimitConfig) handler.Middleware[C] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxBodySize
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx handler.Context, contentLength, maxSize int64) handler.Response {
			details := map[string]any{"limit": maxSize}
			if contentLength > 0 {
				details["size"] = contentLength
			}
			return response.Error(response.ErrRequestEntityTooLarge.WithDetails(details))
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			if v := req.Header.Get("Content-Length"); v != "" {
				if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > cfg.MaxSize {
					return cfg.ErrorHandler(ctx, n, cfg.MaxSize)
				}
			}

			// Content-Length can lie (or be absent with chunked encoding),
			// so the limit is enforced on the reader too. One extra byte
			// of allowance distinguishes "exactly at the limit" from over.
			if req.Body != nil {
				req.Body = &cappedBody{body: req.Body, remaining: cfg.MaxSize + 1}
			}

			return next(ctx)
		}
	}
}

// cappedBody fails reads once more than the allowed number of bytes has
// been consumed.
type cappedBody struct {
	body      io.ReadCloser
	remaining int64
}

func (cb *cappedBody) Read(p []byte) (int, error) {
	if cb.remaining <= 0 {
		return 0, fmt.Errorf("request body exceeds size limit")
	}
	if int64(len(p)) > cb.remaining {
		p = p[:cb.remaining]
	}
	n, err := cb.body.Read(p)
	cb.remaining -= int64(n)
	if cb.remaining <= 0 {
		return n, fmt.Errorf("request body exceeds size limit")
	}
	return n, err
}

func (cb *cappedBody) Close() error { return cb.body.Close() }
