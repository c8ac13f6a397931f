// Package pg bootstraps pgx connection pools from environment-driven
// configuration with connection retries, applies goose schema migrations
// and exposes a healthcheck helper. Consumed by the Postgres-backed
// session adapter.
package pg
