package session

import (
	"time"

	"github.com/dmitrymomot/authkit/pkg/sessioncookie"
)

// Config holds session manager configuration loadable from the environment.
type Config struct {
	// ExpiresIn is the session lifetime; renewal triggers at half of it.
	ExpiresIn time.Duration `env:"SESSION_EXPIRES_IN" envDefault:"720h"`

	// CookieName overrides the session cookie name.
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"auth_session"`

	// CookieExpires controls whether the cookie expiry tracks the session
	// lifetime; when false a far-future expiry is issued.
	CookieExpires bool `env:"SESSION_COOKIE_EXPIRES" envDefault:"true"`
}

// DefaultConfig returns the default session configuration: 30-day sessions
// carried in an "auth_session" cookie.
func DefaultConfig() Config {
	return Config{
		ExpiresIn:     30 * 24 * time.Hour,
		CookieName:    "auth_session",
		CookieExpires: true,
	}
}

// NewFromConfig creates a Manager from the provided Config. Additional
// options are applied after the config and take precedence.
func NewFromConfig(adapter Adapter, cfg Config, opts ...Option) (*Manager, error) {
	cookieOpts := []sessioncookie.Option{
		sessioncookie.WithName(cfg.CookieName),
		sessioncookie.WithExpiresIn(cfg.ExpiresIn),
	}
	if !cfg.CookieExpires {
		cookieOpts = append(cookieOpts, sessioncookie.WithNeverExpires())
	}

	configOpts := []Option{
		WithExpiresIn(cfg.ExpiresIn),
		WithCookieController(sessioncookie.New(cookieOpts...)),
	}

	configOpts = append(configOpts, opts...)

	return New(adapter, configOpts...)
}
