package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua keeps the read-modify-write cycle on the Redis server, so concurrent
// consumers of one key serialize there instead of racing over the wire.
var consumeTokensScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local interval_ms = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now_ms = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local state = redis.call("HMGET", KEYS[1], "count", "refilled_at")
local count = tonumber(state[1])

if count == nil then
  count = max - cost
  redis.call("HSET", KEYS[1], "count", count, "refilled_at", now_ms)
  redis.call("PEXPIRE", KEYS[1], ttl_ms)
  return {1, count, now_ms}
end

local refilled_at = tonumber(state[2])
local refill = math.floor((now_ms - refilled_at) / interval_ms)
count = math.min(count + refill, max)

local allowed = 0
if count >= cost then
  count = count - cost
  allowed = 1
end

redis.call("HSET", KEYS[1], "count", count, "refilled_at", now_ms)
redis.call("PEXPIRE", KEYS[1], ttl_ms)
return {allowed, count, now_ms}
`)

var advanceThrottleScript = redis.NewScript(`
local now_ms = tonumber(ARGV[1])
local ttl_ms = tonumber(ARGV[2])
local schedule_len = #ARGV - 2

local state = redis.call("HMGET", KEYS[1], "index", "updated_at")
local index = tonumber(state[1])

if index == nil then
  redis.call("HSET", KEYS[1], "index", 0, "updated_at", now_ms)
  redis.call("PEXPIRE", KEYS[1], ttl_ms)
  return {1, 0, now_ms}
end

local updated_at = tonumber(state[2])
local timeout_ms = tonumber(ARGV[index + 3])

if now_ms - updated_at < timeout_ms then
  return {0, index, updated_at}
end

index = math.min(index + 1, schedule_len - 1)
redis.call("HSET", KEYS[1], "index", index, "updated_at", now_ms)
redis.call("PEXPIRE", KEYS[1], ttl_ms)
return {1, index, now_ms}
`)

// RedisStore implements BucketStore and ThrottleStore on Redis, letting
// multiple service instances share limiter state. Per-key transitions run
// as Lua scripts, which Redis executes atomically. Every write refreshes a
// TTL on the key so abandoned state evicts itself.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	stateTTL  time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix namespaces all limiter keys in Redis.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.keyPrefix = prefix
		}
	}
}

// WithStateTTL sets how long untouched limiter state survives in Redis.
func WithStateTTL(ttl time.Duration) RedisStoreOption {
	return func(rs *RedisStore) {
		if ttl > 0 {
			rs.stateTTL = ttl
		}
	}
}

// NewRedisStore creates a Redis-backed limiter store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrStoreRequired
	}

	rs := &RedisStore{
		client:    client,
		keyPrefix: "ratelimit:",
		stateTTL:  time.Hour,
	}

	for _, opt := range opts {
		opt(rs)
	}

	return rs, nil
}

// ConsumeTokens runs the bucket transition server-side.
func (rs *RedisStore) ConsumeTokens(ctx context.Context, key string, cost int, cfg BucketConfig) (bool, int, time.Time, error) {
	now := time.Now()

	vals, err := consumeTokensScript.Run(ctx, rs.client,
		[]string{rs.keyPrefix + "bucket:" + key},
		cfg.Max,
		cfg.RefillInterval.Milliseconds(),
		cost,
		now.UnixMilli(),
		rs.stateTTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(vals) != 3 {
		return false, 0, time.Time{}, ErrStoreUnavailable
	}

	return vals[0] == 1, int(vals[1]), time.UnixMilli(vals[2]), nil
}

// ResetBucket deletes the key's bucket state.
func (rs *RedisStore) ResetBucket(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.keyPrefix+"bucket:"+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Advance runs the throttle transition server-side.
func (rs *RedisStore) Advance(ctx context.Context, key string, timeouts []time.Duration) (bool, int, time.Time, error) {
	now := time.Now()

	args := make([]any, 0, len(timeouts)+2)
	args = append(args, now.UnixMilli(), rs.stateTTL.Milliseconds())
	for _, d := range timeouts {
		args = append(args, d.Milliseconds())
	}

	vals, err := advanceThrottleScript.Run(ctx, rs.client,
		[]string{rs.keyPrefix + "throttle:" + key}, args...).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(vals) != 3 {
		return false, 0, time.Time{}, ErrStoreUnavailable
	}

	return vals[0] == 1, int(vals[1]), time.UnixMilli(vals[2]), nil
}

// ResetThrottle deletes the key's escalation counter.
func (rs *RedisStore) ResetThrottle(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, rs.keyPrefix+"throttle:"+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
