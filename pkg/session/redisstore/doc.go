// Package redisstore provides a Redis-backed session persistence adapter.
//
// Session records are stored as JSON documents whose Redis TTL is aligned
// to the record expiry, so the server evicts dead sessions on its own. A
// per-user set indexes session ids for bulk invalidation. Multi-key
// operations run as Lua scripts so concurrent validators observe each
// record transition atomically.
package redisstore
