package pgstore

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/pg"
	"github.com/dmitrymomot/authkit/pkg/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the adapter's schema migrations. Call once at startup,
// before New.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, log)
}

// Store is a PostgreSQL-backed session.Adapter.
//
// Sessions are intentionally not constrained by a foreign key to the users
// table: a user row removed out-of-band leaves orphaned sessions, which
// validation detects and deletes on next use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL-backed session adapter.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetSessionAndUser implements session.Adapter. The session row and the
// owning user row are read in a single statement so both reflect one
// snapshot.
func (s *Store) GetSessionAndUser(ctx context.Context, sessionID string) (*session.Record, *session.UserRecord, error) {
	const query = `
		SELECT s.id, s.user_id, s.expires_at, s.attributes, u.id, u.attributes
		FROM auth_sessions s
		LEFT JOIN auth_users u ON u.id = s.user_id
		WHERE s.id = $1`

	var (
		record    session.Record
		userID    *string
		userAttrs session.Attributes
	)
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&record.ID, &record.UserID, &record.ExpiresAt, &record.Attributes,
		&userID, &userAttrs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errors.Join(session.ErrPersistence, err)
	}

	record.ExpiresAt = record.ExpiresAt.UTC()
	if userID == nil {
		return &record, nil, nil
	}
	return &record, &session.UserRecord{ID: *userID, Attributes: userAttrs}, nil
}

// SetSession implements session.Adapter.
func (s *Store) SetSession(ctx context.Context, record session.Record) error {
	if record.ID == "" {
		return errors.Join(session.ErrPersistence, session.ErrInvalidRecord)
	}
	const query = `
		INSERT INTO auth_sessions (id, user_id, expires_at, attributes)
		VALUES ($1, $2, $3, COALESCE($4, '{}'::jsonb))
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    expires_at = EXCLUDED.expires_at,
		    attributes = EXCLUDED.attributes`

	if _, err := s.pool.Exec(ctx, query, record.ID, record.UserID, record.ExpiresAt, record.Attributes); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// UpdateSessionExpiration implements session.Adapter. Updating a session
// that no longer exists is not an error.
func (s *Store) UpdateSessionExpiration(ctx context.Context, sessionID string, expiresAt time.Time) error {
	const query = `UPDATE auth_sessions SET expires_at = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, sessionID, expiresAt); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteSession implements session.Adapter.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	const query = `DELETE FROM auth_sessions WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, sessionID); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteUserSessions implements session.Adapter.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	const query = `DELETE FROM auth_sessions WHERE user_id = $1`
	if _, err := s.pool.Exec(ctx, query, userID); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteExpiredSessions implements session.Adapter.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	const query = `DELETE FROM auth_sessions WHERE expires_at <= now()`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// GetUserSessions implements session.Adapter.
func (s *Store) GetUserSessions(ctx context.Context, userID string) ([]session.Record, error) {
	const query = `
		SELECT id, user_id, expires_at, attributes
		FROM auth_sessions
		WHERE user_id = $1
		ORDER BY expires_at`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errors.Join(session.ErrPersistence, err)
	}
	defer rows.Close()

	var records []session.Record
	for rows.Next() {
		var r session.Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.ExpiresAt, &r.Attributes); err != nil {
			return nil, errors.Join(session.ErrPersistence, err)
		}
		r.ExpiresAt = r.ExpiresAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(session.ErrPersistence, err)
	}
	return records, nil
}

// PutUser persists a user row so session lookups can resolve the owner.
func (s *Store) PutUser(ctx context.Context, user session.UserRecord) error {
	const query = `
		INSERT INTO auth_users (id, attributes)
		VALUES ($1, COALESCE($2, '{}'::jsonb))
		ON CONFLICT (id) DO UPDATE SET attributes = EXCLUDED.attributes`

	if _, err := s.pool.Exec(ctx, query, user.ID, user.Attributes); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// RemoveUser deletes a user row together with all of their sessions.
func (s *Store) RemoveUser(ctx context.Context, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM auth_sessions WHERE user_id = $1`, userID); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM auth_users WHERE id = $1`, userID); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

var _ session.Adapter = (*Store)(nil)
