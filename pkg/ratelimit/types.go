package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a token bucket consumption attempt.
type Result struct {
	// Allowed indicates whether the requested tokens were consumed.
	Allowed bool

	// Limit is the bucket capacity.
	Limit int

	// Remaining is the token count left after this call.
	Remaining int

	// ResetAt is when the next refill interval elapses.
	ResetAt time.Time
}

// RetryAfter returns how long to wait before retrying.
// Returns 0 if the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// ThrottleResult describes the outcome of a throttler consumption attempt.
type ThrottleResult struct {
	// Allowed indicates whether the action may proceed.
	Allowed bool

	// ResetAt is when the key's current timeout elapses and the next
	// action will be allowed.
	ResetAt time.Time
}

// RetryAfter returns how long to wait before the action will be allowed.
// Returns 0 if the current attempt was allowed.
func (r *ThrottleResult) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Limiter is the consumption surface shared by limiter implementations,
// consulted by HTTP middleware and the auth facade.
type Limiter interface {
	// Consume attempts to spend cost tokens for the key.
	Consume(ctx context.Context, key string, cost int) (*Result, error)
}

// BucketConfig defines a token bucket.
type BucketConfig struct {
	// Max is the bucket capacity.
	Max int

	// RefillInterval is how long it takes to regain one token.
	RefillInterval time.Duration
}

func (c BucketConfig) validate() error {
	if c.Max <= 0 {
		return ErrInvalidMax
	}
	if c.RefillInterval <= 0 {
		return ErrInvalidInterval
	}
	return nil
}
