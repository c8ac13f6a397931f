package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/sessioncookie"
)

// fakeTransport stores cookies in a map, mimicking a framework request
// context. failWrites simulates call sites where cookie mutation is
// forbidden.
type fakeTransport struct {
	cookies    map[string]string
	failWrites bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{cookies: make(map[string]string)}
}

func (t *fakeTransport) GetCookie(name string) string { return t.cookies[name] }

func (t *fakeTransport) SetCookie(c sessioncookie.Cookie) error {
	if t.failWrites {
		return errors.New("cookies are read-only here")
	}
	t.cookies[c.Name] = c.Value
	return nil
}

func (t *fakeTransport) RemoveCookie(c sessioncookie.Cookie) error {
	if t.failWrites {
		return errors.New("cookies are read-only here")
	}
	delete(t.cookies, c.Name)
	return nil
}

// plainHasher treats the stored "hash" as the plaintext secret.
type plainHasher struct{}

func (plainHasher) Verify(hash, secret string) error {
	if hash != secret {
		return errors.New("mismatch")
	}
	return nil
}

type fakeProvider struct {
	id      string
	profile auth.ProviderProfile
	err     error
}

func (p *fakeProvider) ProviderID() string { return p.id }

func (p *fakeProvider) AuthURL(state string) (string, error) {
	return "https://provider.test/authorize?state=" + state, nil
}

func (p *fakeProvider) ResolveProfile(ctx context.Context, code string) (auth.ProviderProfile, error) {
	if p.err != nil {
		return auth.ProviderProfile{}, p.err
	}
	return p.profile, nil
}

func setupService(t *testing.T, opts ...auth.Option) (*auth.Service, *session.Manager) {
	t.Helper()

	adapter := session.NewMemoryAdapter(0)
	t.Cleanup(func() { _ = adapter.Close() })
	adapter.PutUser(session.UserRecord{ID: "user-1", Attributes: session.Attributes{"email": "u1@example.com"}})

	manager, err := session.New(adapter, session.WithExpiresIn(time.Hour))
	require.NoError(t, err)

	svc, err := auth.New(manager, opts...)
	require.NoError(t, err)
	return svc, manager
}

func passwordOpts(extra ...auth.Option) []auth.Option {
	opts := []auth.Option{
		auth.WithPasswordStrategy(auth.PasswordConfig{
			Hasher: plainHasher{},
			Lookup: func(ctx context.Context, identifier string) (*session.UserRecord, string, error) {
				if identifier != "u1@example.com" {
					return nil, "", nil
				}
				return &session.UserRecord{ID: "user-1"}, "correct horse", nil
			},
		}),
	}
	return append(opts, extra...)
}

func TestNewRequiresManager(t *testing.T) {
	t.Parallel()

	_, err := auth.New(nil)
	assert.ErrorIs(t, err, auth.ErrSessionManagerRequired)
}

func TestSignInPassword(t *testing.T) {
	t.Parallel()

	t.Run("success sets cookie and starts session", func(t *testing.T) {
		t.Parallel()
		svc, manager := setupService(t, passwordOpts()...)
		transport := newFakeTransport()

		sess, err := svc.SignInPassword(context.Background(), transport, auth.Credentials{
			Identifier: "u1@example.com",
			Secret:     "correct horse",
		})
		require.NoError(t, err)
		assert.Equal(t, "user-1", sess.UserID)
		assert.True(t, sess.Fresh)
		assert.Equal(t, sess.ID, transport.GetCookie(manager.CookieName()))
	})

	t.Run("wrong secret and unknown identifier are indistinguishable", func(t *testing.T) {
		t.Parallel()
		svc, _ := setupService(t, passwordOpts()...)
		transport := newFakeTransport()

		_, err := svc.SignInPassword(context.Background(), transport, auth.Credentials{
			Identifier: "u1@example.com",
			Secret:     "wrong",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = svc.SignInPassword(context.Background(), transport, auth.Credentials{
			Identifier: "nobody@example.com",
			Secret:     "correct horse",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Empty(t, transport.cookies)
	})

	t.Run("empty identifier rejected before limiters", func(t *testing.T) {
		t.Parallel()
		svc, _ := setupService(t, passwordOpts()...)

		_, err := svc.SignInPassword(context.Background(), newFakeTransport(), auth.Credentials{Secret: "x"})
		assert.ErrorIs(t, err, auth.ErrIdentifierRequired)
	})

	t.Run("unconfigured strategy", func(t *testing.T) {
		t.Parallel()
		svc, _ := setupService(t)

		_, err := svc.SignInPassword(context.Background(), newFakeTransport(), auth.Credentials{Identifier: "x"})
		assert.ErrorIs(t, err, auth.ErrStrategyNotConfigured)
	})
}

func TestSignInThrottling(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	throttler, err := ratelimit.NewThrottler(store, []time.Duration{time.Hour})
	require.NoError(t, err)

	svc, _ := setupService(t, passwordOpts(auth.WithThrottler(throttler))...)
	ctx := context.Background()

	t.Run("second attempt within the window is throttled", func(t *testing.T) {
		creds := auth.Credentials{Identifier: "victim@example.com", Secret: "guess"}

		_, err := svc.SignInPassword(ctx, newFakeTransport(), creds)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = svc.SignInPassword(ctx, newFakeTransport(), creds)
		assert.ErrorIs(t, err, auth.ErrRateLimited)
	})

	t.Run("successful sign-in resets the throttle", func(t *testing.T) {
		creds := auth.Credentials{Identifier: "u1@example.com", Secret: "correct horse"}

		_, err := svc.SignInPassword(ctx, newFakeTransport(), creds)
		require.NoError(t, err)

		// Without the reset this immediate retry would be throttled.
		_, err = svc.SignInPassword(ctx, newFakeTransport(), creds)
		require.NoError(t, err)
	})
}

func TestSignInIPLimiting(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	bucket, err := ratelimit.NewTokenBucket(store, ratelimit.BucketConfig{Max: 2, RefillInterval: time.Hour})
	require.NoError(t, err)

	svc, _ := setupService(t, passwordOpts(auth.WithIPLimiter(bucket))...)
	ctx := context.Background()

	creds := auth.Credentials{Identifier: "u1@example.com", Secret: "correct horse", ClientIP: "203.0.113.7"}
	for range 2 {
		_, err := svc.SignInPassword(ctx, newFakeTransport(), creds)
		require.NoError(t, err)
	}
	_, err = svc.SignInPassword(ctx, newFakeTransport(), creds)
	assert.ErrorIs(t, err, auth.ErrRateLimited)

	// Attempts without a client address bypass the IP limiter.
	_, err = svc.SignInPassword(ctx, newFakeTransport(), auth.Credentials{
		Identifier: "u1@example.com", Secret: "correct horse",
	})
	require.NoError(t, err)
}

func TestSignInBasic(t *testing.T) {
	t.Parallel()

	svc, _ := setupService(t, auth.WithBasicStrategy(auth.BasicConfig{
		Verify: func(ctx context.Context, identifier, secret string) (*session.UserRecord, error) {
			if identifier == "user-1" && secret == "hunter2" {
				return &session.UserRecord{ID: "user-1"}, nil
			}
			return nil, nil
		},
	}))

	sess, err := svc.SignInBasic(context.Background(), newFakeTransport(), auth.Credentials{
		Identifier: "user-1", Secret: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)

	_, err = svc.SignInBasic(context.Background(), newFakeTransport(), auth.Credentials{
		Identifier: "user-1", Secret: "nope",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSignInProvider(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		id:      "github",
		profile: auth.ProviderProfile{ProviderUserID: "42", Email: "u1@example.com", EmailVerified: true},
	}
	svc, _ := setupService(t, auth.WithProviderStrategy(auth.ProviderConfig{
		Adapter: provider,
		Resolve: func(ctx context.Context, profile auth.ProviderProfile) (*session.UserRecord, error) {
			if profile.ProviderUserID != "42" {
				return nil, nil
			}
			return &session.UserRecord{ID: "user-1"}, nil
		},
	}))

	t.Run("auth url carries fresh state", func(t *testing.T) {
		t.Parallel()
		url, state, err := svc.ProviderAuthURL("github")
		require.NoError(t, err)
		assert.NotEmpty(t, state)
		assert.Contains(t, url, state)

		_, state2, err := svc.ProviderAuthURL("github")
		require.NoError(t, err)
		assert.NotEqual(t, state, state2)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		_, _, err := svc.ProviderAuthURL("gitlab")
		assert.ErrorIs(t, err, auth.ErrStrategyNotConfigured)
	})

	t.Run("callback starts session", func(t *testing.T) {
		t.Parallel()
		transport := newFakeTransport()
		sess, err := svc.SignInProvider(context.Background(), transport, "github", "code-123", "203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, "user-1", sess.UserID)
	})

	t.Run("exchange failure surfaces invalid code", func(t *testing.T) {
		t.Parallel()
		failing := &fakeProvider{id: "google", err: auth.ErrInvalidCode}
		svc2, _ := setupService(t, auth.WithProviderStrategy(auth.ProviderConfig{
			Adapter: failing,
			Resolve: func(ctx context.Context, profile auth.ProviderProfile) (*session.UserRecord, error) {
				return &session.UserRecord{ID: "user-1"}, nil
			},
		}))
		_, err := svc2.SignInProvider(context.Background(), newFakeTransport(), "google", "bad", "")
		assert.ErrorIs(t, err, auth.ErrInvalidCode)
	})
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	t.Run("no cookie yields null pair without error", func(t *testing.T) {
		t.Parallel()
		svc, _ := setupService(t)

		sess, user, err := svc.ValidateRequest(context.Background(), newFakeTransport())
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)
	})

	t.Run("valid cookie resolves session and user", func(t *testing.T) {
		t.Parallel()
		svc, manager := setupService(t)
		created, err := manager.CreateSession(context.Background(), "user-1", nil)
		require.NoError(t, err)

		transport := newFakeTransport()
		transport.cookies[manager.CookieName()] = created.ID

		sess, user, err := svc.ValidateRequest(context.Background(), transport)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, created.ID, sess.ID)
		assert.False(t, sess.Fresh)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("dead session clears the cookie", func(t *testing.T) {
		t.Parallel()
		svc, manager := setupService(t)

		transport := newFakeTransport()
		transport.cookies[manager.CookieName()] = "no-such-session"

		sess, user, err := svc.ValidateRequest(context.Background(), transport)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)
		assert.Empty(t, transport.GetCookie(manager.CookieName()))
	})

	t.Run("transport write failure is swallowed", func(t *testing.T) {
		t.Parallel()
		svc, manager := setupService(t)

		transport := newFakeTransport()
		transport.cookies[manager.CookieName()] = "no-such-session"
		transport.failWrites = true

		sess, user, err := svc.ValidateRequest(context.Background(), transport)
		require.NoError(t, err)
		assert.Nil(t, sess)
		assert.Nil(t, user)
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	svc, manager := setupService(t, passwordOpts()...)
	ctx := context.Background()
	transport := newFakeTransport()

	sess, err := svc.SignInPassword(ctx, transport, auth.Credentials{
		Identifier: "u1@example.com", Secret: "correct horse",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, transport))
	assert.Empty(t, transport.GetCookie(manager.CookieName()))

	validated, _, err := manager.ValidateSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, validated)

	// Signing out without a session is a no-op.
	require.NoError(t, svc.SignOut(ctx, newFakeTransport()))
}
