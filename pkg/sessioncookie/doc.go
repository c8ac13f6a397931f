// Package sessioncookie builds and parses the session-identifier cookie
// descriptor used to carry an opaque session id between client and server.
//
// The Controller is stateless once constructed: given a session id it
// produces a Cookie descriptor (name, value, wire attributes with a computed
// expiry), and it can produce a blank descriptor that instructs the client to
// drop the cookie. Parsing extracts the named cookie's value from a raw
// Cookie header.
//
//	ctrl := sessioncookie.New()
//	c := ctrl.CreateCookie(sessionID)
//	w.Header().Add("Set-Cookie", c.Serialize())
//
// The controller never talks to a transport itself; callers decide how the
// descriptor reaches the wire (net/http, a framework, a proxy header).
package sessioncookie
