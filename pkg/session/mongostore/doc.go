// Package mongostore provides a MongoDB-backed session persistence adapter.
//
// Sessions live in one collection with a TTL index on expires_at, so the
// server reaps dead sessions in the background; users live in a sibling
// collection. Call EnsureIndexes once at startup.
package mongostore
