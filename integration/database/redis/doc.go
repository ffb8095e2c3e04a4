// Package redis initializes the Redis client and hosts the Redis-backed
// rate limit store.
//
// Connect parses REDIS_URL (redis:// or rediss://), dials with
// exponential backoff, and verifies the connection with a ping before
// returning, mirroring how the pg package treats PostgreSQL.
// Healthcheck returns a ping function shaped for the readiness
// endpoint.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
//
// RateLimitStore implements ratelimiter.Store on top of the client
// with a Lua script, so refill-and-consume is atomic and login
// throttling state is shared across every instance of the service:
//
//	limiter, err := ratelimiter.NewBucket(
//		redis.NewRateLimitStore(client, "daybook:login"),
//		cfg,
//	)
//
// Keys are namespaced by the given prefix and expire on their own once
// a bucket would be full again, so idle keys need no sweeping.
package redis
