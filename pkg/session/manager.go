package session

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/authkit/pkg/sessioncookie"
	"github.com/dmitrymomot/authkit/pkg/timespan"
)

// Manager orchestrates the session lifecycle against a persistence adapter
// and a cookie controller. It is safe for concurrent use.
type Manager struct {
	adapter   Adapter
	cookies   *sessioncookie.Controller
	expiresIn time.Duration

	sessionAttributes Projection
	userAttributes    Projection

	idGenerator func() (string, error)
	logger      *slog.Logger
	nowFunc     func() time.Time
	locks       keyedMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithExpiresIn sets the session lifetime. Renewal triggers at half of it.
func WithExpiresIn(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.expiresIn = d
		}
	}
}

// WithCookieController replaces the cookie controller. Without this option
// the manager builds one with default attributes and the session lifetime.
func WithCookieController(ctrl *sessioncookie.Controller) Option {
	return func(m *Manager) {
		if ctrl != nil {
			m.cookies = ctrl
		}
	}
}

// WithSessionAttributes sets the projection applied to stored session
// attributes before they are exposed on Session values.
func WithSessionAttributes(fn Projection) Option {
	return func(m *Manager) {
		if fn != nil {
			m.sessionAttributes = fn
		}
	}
}

// WithUserAttributes sets the projection applied to stored user attributes
// before they are exposed on User values.
func WithUserAttributes(fn Projection) Option {
	return func(m *Manager) {
		if fn != nil {
			m.userAttributes = fn
		}
	}
}

// WithIDGenerator replaces the session id generator. The generator must
// produce opaque ids with at least 25 bytes of entropy.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.idGenerator = fn
		}
	}
}

// WithLogger sets a structured logger for lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.logger = log
		}
	}
}

// WithClock injects the time source, used by tests to pin the clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.nowFunc = now
		}
	}
}

// New creates a session Manager bound to the given persistence adapter.
func New(adapter Adapter, opts ...Option) (*Manager, error) {
	if adapter == nil {
		return nil, ErrAdapterRequired
	}

	passthrough := func(a Attributes) Attributes { return a.Clone() }

	m := &Manager{
		adapter:           adapter,
		expiresIn:         30 * 24 * time.Hour,
		sessionAttributes: passthrough,
		userAttributes:    passthrough,
		idGenerator:       func() (string, error) { return generateID(defaultIDEntropy) },
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		nowFunc:           time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.cookies == nil {
		m.cookies = sessioncookie.New(sessioncookie.WithExpiresIn(m.expiresIn))
	}

	return m, nil
}

// CreateOption configures a single CreateSession call.
type CreateOption func(*createOptions)

type createOptions struct {
	sessionID string
}

// WithSessionID supplies an explicit session id instead of generating one.
// Used for rotation flows that pre-commit the id elsewhere.
func WithSessionID(id string) CreateOption {
	return func(o *createOptions) {
		o.sessionID = id
	}
}

// CreateSession generates a session id, persists the record and returns the
// fresh session. If the write fails the session must be assumed absent.
func (m *Manager) CreateSession(ctx context.Context, userID string, attributes Attributes, opts ...CreateOption) (*Session, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	sessionID := o.sessionID
	if sessionID == "" {
		var err error
		if sessionID, err = m.idGenerator(); err != nil {
			return nil, err
		}
	}

	unlock := m.locks.lock(sessionID)
	defer unlock()

	expiresAt := m.nowFunc().Add(m.expiresIn)

	if err := m.adapter.SetSession(ctx, Record{
		ID:         sessionID,
		UserID:     userID,
		ExpiresAt:  expiresAt,
		Attributes: attributes.Clone(),
	}); err != nil {
		return nil, err
	}

	m.logger.DebugContext(ctx, "session created",
		slog.String("user_id", userID),
		slog.Time("expires_at", expiresAt),
	)

	return &Session{
		ID:         sessionID,
		UserID:     userID,
		ExpiresAt:  expiresAt,
		Fresh:      true,
		Attributes: m.sessionAttributes(attributes),
	}, nil
}

// ValidateSession looks up the session and its user, remediating orphaned
// and expired records by deleting them. A nil session and user pair means
// "no valid session"; an error means the adapter failed.
//
// A session past the midpoint of its lifetime is renewed: its expiry is
// pushed out to now + expiresIn, persisted, and the returned session carries
// Fresh=true so the caller re-issues the cookie.
func (m *Manager) ValidateSession(ctx context.Context, sessionID string) (*Session, *User, error) {
	if sessionID == "" {
		return nil, nil, nil
	}

	unlock := m.locks.lock(sessionID)
	defer unlock()

	record, userRecord, err := m.adapter.GetSessionAndUser(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, nil
	}

	now := m.nowFunc()

	if userRecord == nil {
		// Orphaned session: its user is gone, so remove the leftover.
		if err := m.adapter.DeleteSession(ctx, record.ID); err != nil {
			return nil, nil, err
		}
		m.logger.DebugContext(ctx, "orphaned session deleted", slog.String("user_id", record.UserID))
		return nil, nil, nil
	}

	if !timespan.IsWithinExpirationAt(now, record.ExpiresAt) {
		if err := m.adapter.DeleteSession(ctx, record.ID); err != nil {
			return nil, nil, err
		}
		m.logger.DebugContext(ctx, "expired session deleted", slog.String("user_id", record.UserID))
		return nil, nil, nil
	}

	session := &Session{
		ID:         record.ID,
		UserID:     record.UserID,
		ExpiresAt:  record.ExpiresAt,
		Fresh:      false,
		Attributes: m.sessionAttributes(record.Attributes),
	}

	// Renew once the session crosses the midpoint of its lifetime.
	activePeriodBoundary := record.ExpiresAt.Add(-m.expiresIn / 2)
	if !now.Before(activePeriodBoundary) {
		session.ExpiresAt = now.Add(m.expiresIn)
		if err := m.adapter.UpdateSessionExpiration(ctx, record.ID, session.ExpiresAt); err != nil {
			return nil, nil, err
		}
		session.Fresh = true
		m.logger.DebugContext(ctx, "session renewed",
			slog.String("user_id", record.UserID),
			slog.Time("expires_at", session.ExpiresAt),
		)
	}

	user := &User{
		ID:         userRecord.ID,
		Attributes: m.userAttributes(userRecord.Attributes),
	}

	return session, user, nil
}

// InvalidateSession deletes the session. Idempotent: deleting a missing or
// already-invalidated id is not an error.
func (m *Manager) InvalidateSession(ctx context.Context, sessionID string) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()

	return m.adapter.DeleteSession(ctx, sessionID)
}

// InvalidateUserSessions deletes every session belonging to the user.
func (m *Manager) InvalidateUserSessions(ctx context.Context, userID string) error {
	return m.adapter.DeleteUserSessions(ctx, userID)
}

// GetUserSessions returns the user's live sessions, skipping expired
// records without deleting them; the sweep owns deletion.
func (m *Manager) GetUserSessions(ctx context.Context, userID string) ([]Session, error) {
	records, err := m.adapter.GetUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := m.nowFunc()
	sessions := make([]Session, 0, len(records))
	for _, record := range records {
		if !timespan.IsWithinExpirationAt(now, record.ExpiresAt) {
			continue
		}
		sessions = append(sessions, Session{
			ID:         record.ID,
			UserID:     record.UserID,
			ExpiresAt:  record.ExpiresAt,
			Fresh:      false,
			Attributes: m.sessionAttributes(record.Attributes),
		})
	}

	return sessions, nil
}

// DeleteExpiredSessions sweeps all expired records. Intended for periodic
// external scheduling; safe to run concurrently with live validations.
func (m *Manager) DeleteExpiredSessions(ctx context.Context) error {
	return m.adapter.DeleteExpiredSessions(ctx)
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string {
	return m.cookies.Name()
}

// ReadSessionCookie extracts the session id from a raw Cookie header.
func (m *Manager) ReadSessionCookie(cookieHeader string) (string, bool) {
	return m.cookies.Parse(cookieHeader)
}

// ReadBearerToken extracts the token from an Authorization header using the
// Bearer scheme.
func (m *Manager) ReadBearerToken(authorizationHeader string) (string, bool) {
	scheme, token, found := strings.Cut(authorizationHeader, " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// CreateSessionCookie builds the cookie descriptor carrying the session id.
func (m *Manager) CreateSessionCookie(sessionID string) sessioncookie.Cookie {
	return m.cookies.CreateCookie(sessionID)
}

// CreateBlankSessionCookie builds the descriptor that clears the session
// cookie on the client.
func (m *Manager) CreateBlankSessionCookie() sessioncookie.Cookie {
	return m.cookies.CreateBlankCookie()
}
