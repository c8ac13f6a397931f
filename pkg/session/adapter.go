package session

import (
	"context"
	"time"
)

// Adapter is the persistence contract consumed by the Manager. The durable
// store is externally owned; this package ships reference implementations
// (memory, Redis, Postgres, Mongo) but any store satisfying the interface
// can be plugged in.
//
// All methods may block on I/O and honor context cancellation. Failures must
// wrap ErrPersistence; the Manager never retries, it propagates. A cancelled
// write must leave the store either fully written or untouched.
type Adapter interface {
	// GetSessionAndUser atomically looks up a session record and its
	// owning user. A missing session yields (nil, nil, nil); a session
	// whose user no longer exists yields (record, nil, nil).
	GetSessionAndUser(ctx context.Context, sessionID string) (*Record, *UserRecord, error)

	// SetSession persists a new session record.
	SetSession(ctx context.Context, record Record) error

	// UpdateSessionExpiration sets a new expiry on an existing record.
	UpdateSessionExpiration(ctx context.Context, sessionID string, expiresAt time.Time) error

	// DeleteSession removes a session record. Deleting a nonexistent id
	// is not an error.
	DeleteSession(ctx context.Context, sessionID string) error

	// DeleteUserSessions removes all session records for a user.
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes all records whose expiry has passed.
	DeleteExpiredSessions(ctx context.Context) error

	// GetUserSessions returns all session records for a user, including
	// expired ones; callers filter.
	GetUserSessions(ctx context.Context, userID string) ([]Record, error)
}
