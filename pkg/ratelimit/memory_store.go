package ratelimit

import (
	"context"
	"sync"
	"time"
)

// bucketState is the persisted token bucket state for one key.
type bucketState struct {
	count      int
	refilledAt time.Time
	lastAccess time.Time // used by cleanup to identify stale entries
}

// throttleState is the persisted escalation counter for one key.
type throttleState struct {
	index      int
	updatedAt  time.Time
	lastAccess time.Time
}

// MemoryStore implements BucketStore and ThrottleStore using in-process
// maps guarded by a mutex. Entries untouched for longer than the stale
// threshold are evicted by a background loop so limiter state cannot grow
// without bound.
type MemoryStore struct {
	mu       sync.Mutex
	buckets  map[string]*bucketState
	counters map[string]*throttleState

	cleanupInterval time.Duration
	staleAfter      time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often stale entries are evicted.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithStaleThreshold sets how long an entry may go untouched before the
// cleanup loop evicts it.
func WithStaleThreshold(threshold time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if threshold > 0 {
			ms.staleAfter = threshold
		}
	}
}

// NewMemoryStore creates an in-memory limiter store with stale-entry
// cleanup enabled by default.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucketState),
		counters:        make(map[string]*throttleState),
		cleanupInterval: 5 * time.Minute,
		staleAfter:      time.Hour,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanupLoop()
	}

	return ms
}

// ConsumeTokens applies the refill-and-consume transition for one key under
// the store lock, so the whole read-modify-write is atomic.
func (ms *MemoryStore) ConsumeTokens(ctx context.Context, key string, cost int, cfg BucketConfig) (bool, int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()

	b, exists := ms.buckets[key]
	if !exists {
		// First use always succeeds; cost above capacity leaves the
		// bucket overdrawn rather than failing the call.
		b = &bucketState{
			count:      cfg.Max - cost,
			refilledAt: now,
			lastAccess: now,
		}
		ms.buckets[key] = b
		return true, b.count, now, nil
	}

	// Whole intervals elapsed since the last call; the remainder is
	// dropped because the refill clock restarts on every call.
	refill := int(now.Sub(b.refilledAt) / cfg.RefillInterval)
	b.count = min(b.count+refill, cfg.Max)
	b.refilledAt = now
	b.lastAccess = now

	if b.count < cost {
		// Rejection still keeps the refill applied above.
		return false, b.count, now, nil
	}

	b.count -= cost
	return true, b.count, now, nil
}

// ResetBucket deletes the key's bucket state.
func (ms *MemoryStore) ResetBucket(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	return nil
}

// Advance applies the throttle transition for one key under the store lock.
func (ms *MemoryStore) Advance(ctx context.Context, key string, timeouts []time.Duration) (bool, int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()

	c, exists := ms.counters[key]
	if !exists {
		c = &throttleState{index: 0, updatedAt: now, lastAccess: now}
		ms.counters[key] = c
		return true, 0, now, nil
	}

	c.lastAccess = now

	if now.Sub(c.updatedAt) < timeouts[c.index] {
		return false, c.index, c.updatedAt, nil
	}

	c.updatedAt = now
	c.index = min(c.index+1, len(timeouts)-1)
	return true, c.index, now, nil
}

// ResetThrottle deletes the key's escalation counter.
func (ms *MemoryStore) ResetThrottle(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.counters, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.stopCleanup)
	})
	return nil
}

func (ms *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > ms.staleAfter {
			delete(ms.buckets, key)
		}
	}
	for key, c := range ms.counters {
		if now.Sub(c.lastAccess) > ms.staleAfter {
			delete(ms.counters, key)
		}
	}
}
