package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// Config defines token bucket parameters.
type Config struct {
	// Capacity is the maximum number of tokens the bucket can hold.
	Capacity int
	// RefillRate is the number of tokens added per refill interval.
	RefillRate int
	// RefillInterval is how often tokens are added.
	RefillInterval time.Duration
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidConfig)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive", ErrInvalidConfig)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Store persists bucket state. Implementations must be safe for concurrent use.
type Store interface {
	// ConsumeTokens subtracts tokens from the bucket after applying refill,
	// returning the remaining count (may be negative when denied) and the
	// next refill time.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)
	// Reset clears the bucket state for a key.
	Reset(ctx context.Context, key string) error
}

// Result describes the outcome of a rate limit check.
type Result struct {
	// Limit is the configured bucket capacity.
	Limit int
	// Remaining is the token count left after this request (negative when denied).
	Remaining int
	// ResetAt is when the next refill happens.
	ResetAt time.Time
}

// Allowed reports whether the request is within the limit.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long the caller should wait before retrying.
// Zero when the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	wait := time.Until(r.ResetAt)
	if wait < 0 {
		wait = 0
	}
	return wait
}

// RateLimiter is the contract consumed by middleware and services.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
	AllowN(ctx context.Context, key string, n int) (*Result, error)
}

// Bucket implements RateLimiter using the token bucket algorithm
// over a pluggable Store.
type Bucket struct {
	store  Store
	config Config
}

// NewBucket creates a token bucket rate limiter with the given store and config.
func NewBucket(store Store, config Config) (*Bucket, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, config: config}, nil
}

// Allow consumes a single token for the key.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN consumes n tokens for the key.
func (b *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n < 0 {
		return nil, ErrInvalidTokenCount
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, n, b.config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Result{
		Limit:     b.config.Capacity,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the bucket for a key, restoring full capacity on next use.
func (b *Bucket) Reset(ctx context.Context, key string) error {
	return b.store.Reset(ctx, key)
}
