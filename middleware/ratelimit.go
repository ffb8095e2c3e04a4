package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/daybook/core/handler"
	"github.com/dmitrymomot/daybook/core/response"
	"github.com/dmitrymomot/daybook/pkg/ratelimiter"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Skip suppresses limiting for matching requests.
	Skip func(ctx handler.Context) bool

	// Limiter tracks per-key usage; required.
	Limiter ratelimiter.RateLimiter

	// KeyExtractor derives the limiting key (default: client IP, falling
	// back to RemoteAddr).
	KeyExtractor func(ctx handler.Context) string

	// ErrorHandler renders the rejection (default: 429 with retry_after
	// in details).
	ErrorHandler func(ctx handler.Context, result *ratelimiter.Result) handler.Response

	// SetHeaders adds X-RateLimit-* headers to every limited response.
	SetHeaders bool
}

// RateLimit enforces a request budget per key, rejecting over-budget
// requests with 429. Panics if cfg.Limiter is nil.
func RateLimit[C handler.Context](cfg RateLimitConfig) handler.Middleware[C] {
	if cfg.Limiter == nil {
		panic("ratelimit middleware: limiter is required")
	}

	if cfg.KeyExtractor == nil {
		cfg.KeyExtractor = func(ctx handler.Context) string {
			if ip, ok := GetClientIP(ctx); ok {
				return ip
			}
			return ctx.Request().RemoteAddr
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx handler.Context, result *ratelimiter.Result) handler.Response {
			err := response.ErrTooManyRequests
			if result != nil && result.RetryAfter() > 0 {
				err = err.WithDetails(map[string]any{
					"retry_after": fmt.Sprintf("%.0f", result.RetryAfter().Seconds()),
				})
			}
			return response.Error(err)
		}
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			key := cfg.KeyExtractor(ctx)
			result, err := cfg.Limiter.Allow(ctx.Request().Context(), key)
			if err != nil {
				return response.Error(response.ErrInternalServerError.WithError(err))
			}

			var resp handler.Response
			if result.Allowed() {
				resp = next(ctx)
			} else {
				resp = cfg.ErrorHandler(ctx, result)
			}

			if cfg.SetHeaders {
				return withRateLimitHeaders(resp, result)
			}
			return resp
		}
	}
}

// withRateLimitHeaders sets the X-RateLimit-Limit/-Remaining/-Reset
// headers, plus Retry-After when the request was rejected.
func withRateLimitHeaders(resp handler.Response, result *ratelimiter.Result) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		if !result.Allowed() && result.RetryAfter() > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter().Seconds())))
		}
		return resp(w, r)
	}
}
