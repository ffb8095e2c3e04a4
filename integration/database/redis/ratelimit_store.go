package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/daybook/pkg/ratelimiter"
)

// Compile-time check that RateLimitStore implements ratelimiter.Store.
var _ ratelimiter.Store = (*RateLimitStore)(nil)

// RateLimitStore implements the token bucket store on Redis so limits
// are shared across processes. Bucket state lives in a hash with a TTL
// of two refill intervals past full recovery.
type RateLimitStore struct {
	client *redis.Client
	prefix string
}

// NewRateLimitStore creates a Redis-backed rate limit store.
// Keys are namespaced with the given prefix ("ratelimit" when empty).
func NewRateLimitStore(client *redis.Client, prefix string) *RateLimitStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RateLimitStore{client: client, prefix: prefix}
}

// consumeScript refills and consumes atomically. Argument order:
// capacity, refill rate, refill interval (ms), tokens to consume, now (ms).
// Returns {remaining, last_refill_ms}.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local consume = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'refilled')
local tokens = tonumber(state[1])
local refilled = tonumber(state[2])

if tokens == nil then
  tokens = capacity
  refilled = now
end

local elapsed = now - refilled
if elapsed >= interval then
  local intervals = math.floor(elapsed / interval)
  tokens = math.min(tokens + intervals * rate, capacity)
  refilled = now
end

tokens = tokens - consume

redis.call('HSET', key, 'tokens', tokens, 'refilled', refilled)
local ttl = math.ceil((capacity / rate + 2) * interval / 1000)
redis.call('EXPIRE', key, ttl)

return {tokens, refilled}
`)

// ConsumeTokens implements ratelimiter.Store.
func (s *RateLimitStore) ConsumeTokens(ctx context.Context, key string, tokens int, config ratelimiter.Config) (int, time.Time, error) {
	now := time.Now()

	res, err := consumeScript.Run(ctx, s.client, []string{s.key(key)},
		config.Capacity,
		config.RefillRate,
		config.RefillInterval.Milliseconds(),
		tokens,
		now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ratelimiter.ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply", ratelimiter.ErrStoreUnavailable)
	}

	remaining := int(res[0])
	resetAt := time.UnixMilli(res[1]).Add(config.RefillInterval)
	return remaining, resetAt, nil
}

// Reset implements ratelimiter.Store.
func (s *RateLimitStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RateLimitStore) key(key string) string {
	return s.prefix + ":" + key
}
