// Package redis bootstraps go-redis clients from environment-driven
// configuration with connection retries, plus a healthcheck helper for
// readiness probes. Consumed by the Redis-backed session adapter and
// rate limit store.
package redis
