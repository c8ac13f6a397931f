// Package mongo bootstraps MongoDB clients from environment-driven
// configuration with connection retries, plus a healthcheck helper.
// Consumed by the Mongo-backed session adapter.
package mongo
