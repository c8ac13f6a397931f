// Package auth is the thin facade tying session management, cookie
// handling, and rate control together behind per-strategy sign-in entry
// points.
//
// The facade owns no state of its own: it extracts the session id from the
// transport, delegates validation and renewal to session.Manager, and hands
// refreshed or blank cookie descriptors back to the transport. Credential
// verification is pluggable through a closed set of strategy configs
// (basic, password, provider-delegated); rate control before sign-in
// attempts is delegated to the ratelimit package.
//
// Transport write failures are swallowed here, never inside the session
// manager: some frameworks forbid cookie mutation at certain call sites,
// and a failed cookie write must not invalidate a correct state
// computation.
package auth
