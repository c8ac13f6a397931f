package ratelimit

import "errors"

var (
	// ErrStoreRequired indicates a limiter was constructed without a store.
	ErrStoreRequired = errors.New("ratelimit.store_required")

	// ErrKeyRequired indicates an empty rate limit key.
	ErrKeyRequired = errors.New("ratelimit.key_required")

	// ErrInvalidMax indicates a non-positive bucket capacity.
	ErrInvalidMax = errors.New("ratelimit.invalid_max")

	// ErrInvalidInterval indicates a non-positive refill interval.
	ErrInvalidInterval = errors.New("ratelimit.invalid_interval")

	// ErrInvalidCost indicates a non-positive token cost.
	ErrInvalidCost = errors.New("ratelimit.invalid_cost")

	// ErrInvalidSchedule indicates an empty or non-positive timeout schedule.
	ErrInvalidSchedule = errors.New("ratelimit.invalid_schedule")

	// ErrStoreUnavailable indicates the storage backend failed.
	ErrStoreUnavailable = errors.New("ratelimit.store_unavailable")
)
