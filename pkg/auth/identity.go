package auth

import (
	"context"

	"github.com/dmitrymomot/authkit/pkg/session"
)

// Authentication method identifiers recorded on created sessions.
const (
	MethodBasic    = "basic"
	MethodPassword = "password"
)

// PasswordHasher verifies a plaintext secret against a stored hash. The
// hashing scheme is owned by the host application; this package never
// hashes or stores secrets itself.
type PasswordHasher interface {
	// Verify returns nil when the secret matches the hash. Any non-nil
	// error is reported to the caller as invalid credentials.
	Verify(hash, secret string) error
}

// ProviderProfile is the identity resolved from a delegated provider after
// a successful code exchange.
type ProviderProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// ProviderAdapter wraps one delegated identity provider. Implementations
// own the oauth2 configuration and whatever profile endpoint the provider
// exposes; the facade only sees the resolved profile.
type ProviderAdapter interface {
	// ProviderID returns the stable provider identifier, e.g. "github".
	ProviderID() string

	// AuthURL builds the provider authorization URL carrying the given
	// CSRF state token.
	AuthURL(state string) (string, error)

	// ResolveProfile exchanges the authorization code and resolves the
	// provider-side identity. A failed exchange returns ErrInvalidCode.
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}

// BasicConfig registers the basic strategy: the host application resolves
// an identifier/secret pair to a user on its own terms.
type BasicConfig struct {
	// Verify resolves the pair to a user record. Returning (nil, nil)
	// means the credentials did not match; the facade reports
	// ErrInvalidCredentials without revealing which half failed.
	Verify func(ctx context.Context, identifier, secret string) (*session.UserRecord, error)
}

// PasswordConfig registers the password strategy. Lookup fetches the user
// and their stored hash, Hasher checks the supplied secret against it.
type PasswordConfig struct {
	Hasher PasswordHasher

	// Lookup returns the user record and stored password hash for an
	// identifier. Returning (nil, "", nil) means no such user; the facade
	// reports ErrInvalidCredentials.
	Lookup func(ctx context.Context, identifier string) (*session.UserRecord, string, error)
}

// ProviderConfig registers one delegated-identity strategy.
type ProviderConfig struct {
	Adapter ProviderAdapter

	// Resolve maps a provider profile to a local user record, creating
	// one when the host application allows sign-up through this
	// provider. Returning (nil, nil) rejects the profile.
	Resolve func(ctx context.Context, profile ProviderProfile) (*session.UserRecord, error)
}
