package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/session"
)

func setupManager(t *testing.T, opts ...session.Option) (*session.Manager, *session.MemoryAdapter) {
	t.Helper()

	adapter := session.NewMemoryAdapter(0)
	t.Cleanup(func() { _ = adapter.Close() })

	adapter.PutUser(session.UserRecord{
		ID:         "user-1",
		Attributes: session.Attributes{"email": "one@example.com"},
	})

	manager, err := session.New(adapter, opts...)
	require.NoError(t, err)

	return manager, adapter
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := session.New(nil)
	assert.ErrorIs(t, err, session.ErrAdapterRequired)
}

func TestManager_CreateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates fresh session with generated id", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t, session.WithExpiresIn(time.Hour))

		sess, err := manager.CreateSession(ctx, "user-1", session.Attributes{"ip": "10.0.0.1"})
		require.NoError(t, err)

		assert.True(t, sess.Fresh)
		assert.Equal(t, "user-1", sess.UserID)
		assert.Len(t, sess.ID, 40, "25 bytes of entropy base32-encode to 40 chars")
		assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)
		assert.Equal(t, "10.0.0.1", sess.Attributes["ip"])
	})

	t.Run("honors explicit session id", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t)

		sess, err := manager.CreateSession(ctx, "user-1", nil, session.WithSessionID("explicit-id"))
		require.NoError(t, err)
		assert.Equal(t, "explicit-id", sess.ID)
	})

	t.Run("persists before returning", func(t *testing.T) {
		t.Parallel()

		manager, adapter := setupManager(t)

		sess, err := manager.CreateSession(ctx, "user-1", nil)
		require.NoError(t, err)

		record, _, err := adapter.GetSessionAndUser(ctx, sess.ID)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, sess.ExpiresAt, record.ExpiresAt)
	})

	t.Run("ids are unique", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t)

		seen := make(map[string]struct{})
		for range 100 {
			sess, err := manager.CreateSession(ctx, "user-1", nil)
			require.NoError(t, err)
			_, dup := seen[sess.ID]
			require.False(t, dup)
			seen[sess.ID] = struct{}{}
		}
	})
}

func TestManager_ValidateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fresh false immediately after creation", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t, session.WithExpiresIn(time.Hour))

		created, err := manager.CreateSession(ctx, "user-1", nil)
		require.NoError(t, err)

		sess, user, err := manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, sess)
		require.NotNil(t, user)

		assert.False(t, sess.Fresh, "just-created session is not just-renewed")
		assert.Equal(t, created.ID, sess.ID)
		assert.Equal(t, "user-1", sess.UserID)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, created.ExpiresAt, sess.ExpiresAt, "expiry unchanged before the boundary")
	})

	t.Run("unknown id yields null pair without error", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t)

		sess, user, err := manager.ValidateSession(ctx, "no-such-session")
		assert.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)
	})

	t.Run("empty id yields null pair", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t)

		sess, user, err := manager.ValidateSession(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)
	})

	t.Run("no renewal strictly before the boundary", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		manager, _ := setupManager(t,
			session.WithExpiresIn(time.Hour),
			session.WithClock(func() time.Time { return now }),
		)

		created, err := manager.CreateSession(ctx, "user-1", nil)
		require.NoError(t, err)

		// One second shy of the midpoint.
		now = now.Add(30*time.Minute - time.Second)

		sess, _, err := manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.False(t, sess.Fresh)
		assert.Equal(t, created.ExpiresAt, sess.ExpiresAt)
	})

	t.Run("renews at the boundary and persists", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		manager, adapter := setupManager(t,
			session.WithExpiresIn(time.Hour),
			session.WithClock(func() time.Time { return now }),
		)

		created, err := manager.CreateSession(ctx, "user-1", nil)
		require.NoError(t, err)

		now = now.Add(30 * time.Minute) // exactly at the midpoint

		sess, _, err := manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.True(t, sess.Fresh)
		assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
		assert.True(t, sess.ExpiresAt.After(created.ExpiresAt), "expiry is monotonic non-decreasing")

		record, _, err := adapter.GetSessionAndUser(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, sess.ExpiresAt, record.ExpiresAt, "renewed expiry reaches the store")

		// Renewal happens once per crossing: immediately after, the
		// session sits at the start of a new lifetime.
		sess2, _, err := manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, sess2)
		assert.False(t, sess2.Fresh)
	})

	t.Run("expired session is deleted and yields null pair", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		manager, adapter := setupManager(t,
			session.WithExpiresIn(time.Hour),
			session.WithClock(func() time.Time { return now }),
		)

		created, err := manager.CreateSession(ctx, "user-1", nil)
		require.NoError(t, err)

		now = now.Add(time.Hour) // exactly at expiry counts as expired

		sess, user, err := manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)

		record, _, err := adapter.GetSessionAndUser(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, record, "expired record was deleted")

		// Subsequent validation with the same id stays null.
		sess, user, err = manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)
	})

	t.Run("orphaned session is deleted and yields null pair", func(t *testing.T) {
		t.Parallel()

		manager, adapter := setupManager(t)

		created, err := manager.CreateSession(ctx, "user-1", nil)
		require.NoError(t, err)

		adapter.RemoveUser("user-1")

		sess, user, err := manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)

		record, _, err := adapter.GetSessionAndUser(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, record, "orphaned record was deleted")
	})

	t.Run("applies attribute projections", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t,
			session.WithSessionAttributes(func(a session.Attributes) session.Attributes {
				return session.Attributes{"ip": a["ip"]}
			}),
			session.WithUserAttributes(func(a session.Attributes) session.Attributes {
				return session.Attributes{"email": a["email"]}
			}),
		)

		created, err := manager.CreateSession(ctx, "user-1", session.Attributes{
			"ip":     "10.0.0.1",
			"secret": "do-not-expose",
		})
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.1", created.Attributes["ip"])
		assert.NotContains(t, created.Attributes, "secret")

		sess, user, err := manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.NotContains(t, sess.Attributes, "secret")
		assert.Equal(t, "one@example.com", user.Attributes["email"])
	})
}

type failingAdapter struct {
	session.Adapter
}

func (failingAdapter) GetSessionAndUser(ctx context.Context, sessionID string) (*session.Record, *session.UserRecord, error) {
	return nil, nil, errors.Join(session.ErrPersistence, errors.New("connection refused"))
}

func (failingAdapter) SetSession(ctx context.Context, record session.Record) error {
	return errors.Join(session.ErrPersistence, errors.New("connection refused"))
}

func TestManager_PersistenceFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	manager, err := session.New(failingAdapter{})
	require.NoError(t, err)

	_, createErr := manager.CreateSession(ctx, "user-1", nil)
	assert.ErrorIs(t, createErr, session.ErrPersistence, "failed create surfaces the adapter error")

	_, _, validateErr := manager.ValidateSession(ctx, "some-id")
	assert.ErrorIs(t, validateErr, session.ErrPersistence)
}

func TestManager_Invalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("invalidated session no longer validates", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t)

		created, err := manager.CreateSession(ctx, "user-1", nil)
		require.NoError(t, err)

		require.NoError(t, manager.InvalidateSession(ctx, created.ID))

		sess, user, err := manager.ValidateSession(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t)

		assert.NoError(t, manager.InvalidateSession(ctx, "never-existed"))

		created, err := manager.CreateSession(ctx, "user-1", nil)
		require.NoError(t, err)
		assert.NoError(t, manager.InvalidateSession(ctx, created.ID))
		assert.NoError(t, manager.InvalidateSession(ctx, created.ID))
	})

	t.Run("invalidate user sessions empties the listing", func(t *testing.T) {
		t.Parallel()

		manager, _ := setupManager(t)

		for range 3 {
			_, err := manager.CreateSession(ctx, "user-1", nil)
			require.NoError(t, err)
		}

		sessions, err := manager.GetUserSessions(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, sessions, 3)

		require.NoError(t, manager.InvalidateUserSessions(ctx, "user-1"))

		sessions, err = manager.GetUserSessions(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}

func TestManager_GetUserSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Now()
	manager, _ := setupManager(t,
		session.WithExpiresIn(time.Hour),
		session.WithClock(func() time.Time { return now }),
	)

	live, err := manager.CreateSession(ctx, "user-1", nil)
	require.NoError(t, err)

	// Second session created in the past so it is already expired.
	now = now.Add(-2 * time.Hour)
	_, err = manager.CreateSession(ctx, "user-1", nil)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)

	sessions, err := manager.GetUserSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1, "expired sessions are skipped")
	assert.Equal(t, live.ID, sessions[0].ID)
	assert.False(t, sessions[0].Fresh)
}

func TestManager_DeleteExpiredSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Now()
	manager, adapter := setupManager(t,
		session.WithExpiresIn(time.Hour),
		session.WithClock(func() time.Time { return now }),
	)

	live, err := manager.CreateSession(ctx, "user-1", nil)
	require.NoError(t, err)

	now = now.Add(-2 * time.Hour)
	expired, err := manager.CreateSession(ctx, "user-1", nil)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)

	require.NoError(t, manager.DeleteExpiredSessions(ctx))

	record, _, err := adapter.GetSessionAndUser(ctx, expired.ID)
	require.NoError(t, err)
	assert.Nil(t, record)

	record, _, err = adapter.GetSessionAndUser(ctx, live.ID)
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestManager_Cookies(t *testing.T) {
	t.Parallel()

	manager, _ := setupManager(t)

	t.Run("session cookie round trip", func(t *testing.T) {
		t.Parallel()

		c := manager.CreateSessionCookie("sid-value")
		assert.Equal(t, "auth_session", c.Name)
		assert.Equal(t, "sid-value", c.Value)

		id, ok := manager.ReadSessionCookie("auth_session=sid-value; theme=dark")
		assert.True(t, ok)
		assert.Equal(t, "sid-value", id)
	})

	t.Run("blank cookie clears", func(t *testing.T) {
		t.Parallel()

		c := manager.CreateBlankSessionCookie()
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.Attributes.MaxAge)
	})

	t.Run("bearer token parsing", func(t *testing.T) {
		t.Parallel()

		token, ok := manager.ReadBearerToken("Bearer abc123")
		assert.True(t, ok)
		assert.Equal(t, "abc123", token)

		_, ok = manager.ReadBearerToken("Basic abc123")
		assert.False(t, ok)

		_, ok = manager.ReadBearerToken("Bearer")
		assert.False(t, ok)

		_, ok = manager.ReadBearerToken("")
		assert.False(t, ok)
	})
}

func TestManager_ConcurrentValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	manager, _ := setupManager(t, session.WithExpiresIn(50*time.Millisecond))

	created, err := manager.CreateSession(ctx, "user-1", nil)
	require.NoError(t, err)

	// Past the midpoint every validation wants to renew; per-id locking
	// keeps each read-modify-write atomic and the expiry monotonic.
	time.Sleep(30 * time.Millisecond)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, user, err := manager.ValidateSession(ctx, created.ID)
			assert.NoError(t, err)
			if sess != nil {
				assert.Equal(t, "user-1", user.ID)
				assert.False(t, sess.ExpiresAt.Before(created.ExpiresAt))
			}
		}()
	}
	wg.Wait()
}
