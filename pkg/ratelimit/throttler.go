package ratelimit

import (
	"context"
	"time"
)

// Throttler enforces an escalating idle period between successive allowed
// actions on the same key. Each allowed action advances the key one step
// along the timeout schedule, saturating at the last entry; Reset returns
// the key to first-use semantics.
type Throttler struct {
	store    ThrottleStore
	timeouts []time.Duration
}

// NewThrottler creates a throttler with the given escalation schedule.
// The schedule must be non-empty with strictly positive timeouts.
func NewThrottler(store ThrottleStore, timeouts []time.Duration) (*Throttler, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if len(timeouts) == 0 {
		return nil, ErrInvalidSchedule
	}
	for _, d := range timeouts {
		if d <= 0 {
			return nil, ErrInvalidSchedule
		}
	}

	// Defensive copy so callers can't mutate the schedule underneath us.
	schedule := make([]time.Duration, len(timeouts))
	copy(schedule, timeouts)

	return &Throttler{store: store, timeouts: schedule}, nil
}

// Consume attempts the action for the key. The first attempt for a key
// always succeeds; each later attempt is allowed only once the timeout at
// the key's current escalation index has elapsed since the last allowed
// attempt. Rejected attempts never mutate state.
func (t *Throttler) Consume(ctx context.Context, key string) (*ThrottleResult, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	allowed, index, updatedAt, err := t.store.Advance(ctx, key, t.timeouts)
	if err != nil {
		return nil, err
	}

	return &ThrottleResult{
		Allowed: allowed,
		ResetAt: updatedAt.Add(t.timeouts[index]),
	}, nil
}

// Reset clears the key's escalation state. Call it after a successful
// sensitive action (e.g. a correct password) to lift the lockout.
func (t *Throttler) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return t.store.ResetThrottle(ctx, key)
}
