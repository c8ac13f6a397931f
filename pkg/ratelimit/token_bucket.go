package ratelimit

import (
	"context"
)

// TokenBucket is a per-key rate limiter allowing bursts up to a fixed
// capacity, replenished one token per refill interval.
//
// Refill arithmetic drops fractional intervals on every call instead of
// carrying the remainder forward, which slightly under-refills under a
// steady stream of attempts. This matches the bucket's documented contract
// and keeps the persisted state to a single counter and timestamp.
type TokenBucket struct {
	store BucketStore
	cfg   BucketConfig
}

// NewTokenBucket creates a token bucket limiter backed by the given store.
func NewTokenBucket(store BucketStore, cfg BucketConfig) (*TokenBucket, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &TokenBucket{store: store, cfg: cfg}, nil
}

// Consume attempts to spend cost tokens for the key. The first call for a
// key always succeeds, even when cost exceeds the capacity; the bucket is
// then created already overdrawn and recovers through refills.
func (tb *TokenBucket) Consume(ctx context.Context, key string, cost int) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	if cost <= 0 {
		return nil, ErrInvalidCost
	}

	allowed, remaining, refilledAt, err := tb.store.ConsumeTokens(ctx, key, cost, tb.cfg)
	if err != nil {
		return nil, err
	}

	return &Result{
		Allowed:   allowed,
		Limit:     tb.cfg.Max,
		Remaining: max(0, remaining),
		ResetAt:   refilledAt.Add(tb.cfg.RefillInterval),
	}, nil
}

// Reset deletes the key's bucket state.
func (tb *TokenBucket) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	return tb.store.ResetBucket(ctx, key)
}
