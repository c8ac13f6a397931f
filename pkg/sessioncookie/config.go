package sessioncookie

import "time"

// Config holds session cookie configuration loadable from the environment.
type Config struct {
	Name      string        `env:"SESSION_COOKIE_NAME" envDefault:"auth_session"`
	ExpiresIn time.Duration `env:"SESSION_COOKIE_EXPIRES_IN" envDefault:"720h"`
	// Expires controls whether the cookie expiry tracks the session
	// lifetime. When false a far-future expiry is issued instead.
	Expires  bool     `env:"SESSION_COOKIE_EXPIRES" envDefault:"true"`
	Path     string   `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	Domain   string   `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
	Secure   bool     `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
	HTTPOnly bool     `env:"SESSION_COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite SameSite `env:"SESSION_COOKIE_SAME_SITE" envDefault:"lax"`
}

// DefaultConfig returns the default cookie configuration.
func DefaultConfig() Config {
	return Config{
		Name:      DefaultName,
		ExpiresIn: 30 * 24 * time.Hour,
		Expires:   true,
		Path:      "/",
		Secure:    true,
		HTTPOnly:  true,
		SameSite:  SameSiteLax,
	}
}

// NewFromConfig creates a Controller from the provided Config. Additional
// options are applied after the config and take precedence.
func NewFromConfig(cfg Config, opts ...Option) *Controller {
	configOpts := []Option{
		WithName(cfg.Name),
		WithExpiresIn(cfg.ExpiresIn),
		WithPath(cfg.Path),
		WithSecure(cfg.Secure),
		WithHTTPOnly(cfg.HTTPOnly),
		WithSameSite(cfg.SameSite),
	}

	if cfg.Domain != "" {
		configOpts = append(configOpts, WithDomain(cfg.Domain))
	}
	if !cfg.Expires {
		configOpts = append(configOpts, WithNeverExpires())
	}

	configOpts = append(configOpts, opts...)

	return New(configOpts...)
}
