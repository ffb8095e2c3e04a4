package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// staleAfter is how long an untouched bucket survives before the next
// sweep drops it.
const staleAfter = time.Hour

// sweepEvery bounds how often ConsumeTokens scans for stale buckets.
const sweepEvery = 5 * time.Minute

type memoryBucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// MemoryStore is a Store backed by a process-local map, for single
// instance deployments and tests. Stale buckets are swept inline on
// access, so it needs no background goroutine.
type MemoryStore struct {
	mu        sync.Mutex
	buckets   map[string]*memoryBucket
	nextSweep time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets:   make(map[string]*memoryBucket),
		nextSweep: time.Now().Add(sweepEvery),
	}
}

// ConsumeTokens implements Store: it refills the key's bucket for the
// elapsed intervals, then subtracts tokens. A negative remaining count
// means the request is denied.
func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	ms.sweep(now)

	b, ok := ms.buckets[key]
	if !ok {
		b = &memoryBucket{tokens: config.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}

	// Cap credited intervals so a long-idle bucket cannot overflow the
	// arithmetic before the min with Capacity applies.
	elapsed := int64(now.Sub(b.lastRefill) / config.RefillInterval)
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	if elapsed > maxIntervals {
		elapsed = maxIntervals
	}
	if elapsed > 0 {
		b.tokens = min(b.tokens+int(elapsed)*config.RefillRate, config.Capacity)
		b.lastRefill = now
	}

	b.tokens -= tokens
	b.lastAccess = now

	return b.tokens, b.lastRefill.Add(config.RefillInterval), nil
}

// Reset implements Store, restoring full capacity on the key's next use.
func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	return nil
}

// sweep drops buckets idle past staleAfter. Caller holds mu.
func (ms *MemoryStore) sweep(now time.Time) {
	if now.Before(ms.nextSweep) {
		return
	}
	ms.nextSweep = now.Add(sweepEvery)

	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > staleAfter {
			delete(ms.buckets, key)
		}
	}
}
