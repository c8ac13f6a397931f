package session

import (
	"maps"
	"time"
)

// Attributes is an open bag of values stored alongside a session or user
// record. The manager passes it through a projection function with a schema
// fixed at construction time, so consumers see a stable shape.
type Attributes map[string]any

// Clone returns a shallow copy, or nil for a nil bag.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	maps.Copy(out, a)
	return out
}

// Projection maps stored attributes to the attributes exposed on sessions
// and users. It is resolved once at Manager construction.
type Projection func(Attributes) Attributes

// Session is the in-memory view of one validated or newly created session.
// It is owned by the caller for the duration of one call; the durable record
// lives in the adapter's store.
type Session struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Attributes Attributes `json:"attributes,omitempty"`

	// Fresh is true only for sessions just created or just renewed by the
	// current call. It signals the caller to re-issue the session cookie.
	Fresh bool `json:"fresh"`
}

// User is the read-only view of the session's owner, supplied by the store.
type User struct {
	ID         string     `json:"id"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// Record is the durable session record as the persistence adapter stores it.
type Record struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// UserRecord is the durable user record as the persistence adapter stores it.
type UserRecord struct {
	ID         string     `json:"id"`
	Attributes Attributes `json:"attributes,omitempty"`
}
