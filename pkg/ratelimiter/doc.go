// Package ratelimiter implements token bucket rate limiting over a
// pluggable Store: buckets hold Capacity tokens, gain RefillRate tokens
// every RefillInterval, and each request consumes one (or AllowN, n).
// Bursts drain the bucket; sustained traffic is held to the refill
// rate.
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: time.Second,
//	})
//
//	result, err := limiter.Allow(ctx, "login:"+clientIP)
//	if err != nil { ... }
//	if !result.Allowed() {
//		// reject; result.RetryAfter() says how long to wait
//	}
//
// MemoryStore keeps buckets in a process-local map; the Redis-backed
// store in integration/database/redis shares buckets across instances.
// Store failures surface as ErrStoreUnavailable so callers choose
// whether to fail open.
package ratelimiter
