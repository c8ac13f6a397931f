// Package session implements the session lifecycle engine: creation,
// validation with sliding expiration, renewal, rotation and invalidation of
// opaque session identifiers backed by a pluggable persistence adapter.
//
// A Manager owns the lifecycle rules; durable session and user records live
// behind the Adapter interface. Validation renews a session only once it has
// passed the midpoint of its lifetime, which keeps sessions alive under
// continued use while halving the write amplification of refreshing the
// expiry on every request.
//
//	manager, _ := session.New(adapter, session.WithExpiresIn(30*24*time.Hour))
//
//	sess, err := manager.CreateSession(ctx, userID, nil)
//	...
//	sess, user, err := manager.ValidateSession(ctx, sessionID)
//	switch {
//	case err != nil:
//	    // persistence failure, surface it
//	case sess == nil:
//	    // no valid session: issue manager.CreateBlankSessionCookie()
//	case sess.Fresh:
//	    // renewed: re-issue manager.CreateSessionCookie(sess.ID)
//	}
//
// "No valid session" is reported as a nil session/user pair, never as an
// error; the error channel is reserved for adapter failures. The manager
// never touches transport state itself — callers move the cookie
// descriptors it produces onto the wire.
package session
