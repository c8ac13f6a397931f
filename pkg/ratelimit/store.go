package ratelimit

import (
	"context"
	"time"
)

// BucketStore persists per-key token bucket state. Implementations must
// apply the whole refill-and-consume transition atomically per key: two
// concurrent calls for the same key must never interleave their
// read-modify-write cycles. Operations on different keys must not block
// each other.
type BucketStore interface {
	// ConsumeTokens refills the key's bucket from the elapsed wall-clock
	// time, then attempts to consume cost tokens. The refill is persisted
	// even when consumption is rejected, and the refill clock restarts on
	// every call. A key seen for the first time is initialized with
	// max - cost tokens and the call succeeds unconditionally.
	ConsumeTokens(ctx context.Context, key string, cost int, cfg BucketConfig) (allowed bool, remaining int, refilledAt time.Time, err error)

	// ResetBucket deletes the key's bucket state.
	ResetBucket(ctx context.Context, key string) error
}

// ThrottleStore persists per-key escalation counters for the Throttler.
// The same per-key atomicity requirements as BucketStore apply.
type ThrottleStore interface {
	// Advance checks the key's current timeout and, if it has elapsed,
	// records the attempt and escalates the timeout index (saturating at
	// the end of the schedule). A rejected attempt must not mutate state.
	// A key seen for the first time succeeds unconditionally at index 0.
	// Returns the index and update time now in effect.
	Advance(ctx context.Context, key string, timeouts []time.Duration) (allowed bool, index int, updatedAt time.Time, err error)

	// ResetThrottle deletes the key's counter, restoring first-use
	// semantics.
	ResetThrottle(ctx context.Context, key string) error
}
