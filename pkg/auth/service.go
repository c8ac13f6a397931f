package auth

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	"github.com/dmitrymomot/authkit/pkg/session"
)

// Credentials carries one sign-in attempt. ClientIP is optional; when set
// and an IP limiter is configured, the attempt is also counted against the
// caller's address.
type Credentials struct {
	Identifier string
	Secret     string
	ClientIP   string
}

// Service is the facade. It dispatches sign-in attempts to the registered
// strategies, gates them through the configured rate limiters, and keeps
// transport cookies in step with session state.
type Service struct {
	sessions  *session.Manager
	throttle  *ratelimit.Throttler
	ipLimiter ratelimit.Limiter
	basic     *BasicConfig
	password  *PasswordConfig
	providers map[string]ProviderConfig
	newState  func() string
	log       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithThrottler gates sign-in attempts per identifier with an escalating
// backoff. A correct sign-in resets the identifier's throttle state.
func WithThrottler(t *ratelimit.Throttler) Option {
	return func(s *Service) { s.throttle = t }
}

// WithIPLimiter gates sign-in attempts per client address, typically with a
// token bucket. Attempts without a ClientIP bypass this limiter.
func WithIPLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) { s.ipLimiter = l }
}

// WithBasicStrategy registers the basic strategy.
func WithBasicStrategy(cfg BasicConfig) Option {
	return func(s *Service) { s.basic = &cfg }
}

// WithPasswordStrategy registers the password strategy.
func WithPasswordStrategy(cfg PasswordConfig) Option {
	return func(s *Service) { s.password = &cfg }
}

// WithProviderStrategy registers a delegated-identity strategy, keyed by
// the adapter's provider id.
func WithProviderStrategy(cfg ProviderConfig) Option {
	return func(s *Service) {
		if cfg.Adapter != nil {
			s.providers[cfg.Adapter.ProviderID()] = cfg
		}
	}
}

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates the facade around a session manager.
func New(sessions *session.Manager, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, ErrSessionManagerRequired
	}
	s := &Service{
		sessions:  sessions,
		providers: make(map[string]ProviderConfig),
		newState:  uuid.NewString,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ValidateRequest resolves the current request's session from the transport
// cookie and keeps the cookie in step with the outcome: a renewed session
// gets a refreshed cookie, a dead one gets a blank cookie. A missing or
// invalid session yields (nil, nil, nil); only persistence failures are
// errors.
func (s *Service) ValidateRequest(ctx context.Context, t Transport) (*session.Session, *session.User, error) {
	sessionID := t.GetCookie(s.sessions.CookieName())
	if sessionID == "" {
		return nil, nil, nil
	}

	sess, user, err := s.sessions.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case sess == nil:
		if err := t.RemoveCookie(s.sessions.CreateBlankSessionCookie()); err != nil {
			s.log.DebugContext(ctx, "failed to clear session cookie", slog.String("error", err.Error()))
		}
	case sess.Fresh:
		if err := t.SetCookie(s.sessions.CreateSessionCookie(sess.ID)); err != nil {
			s.log.DebugContext(ctx, "failed to refresh session cookie", slog.String("error", err.Error()))
		}
	}

	return sess, user, nil
}

// SignInBasic authenticates through the basic strategy and starts a session.
func (s *Service) SignInBasic(ctx context.Context, t Transport, creds Credentials) (*session.Session, error) {
	if s.basic == nil {
		return nil, ErrStrategyNotConfigured
	}
	if creds.Identifier == "" {
		return nil, ErrIdentifierRequired
	}
	if err := s.gate(ctx, creds); err != nil {
		return nil, err
	}

	user, err := s.basic.Verify(ctx, creds.Identifier, creds.Secret)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, t, creds.Identifier, user, MethodBasic)
}

// SignInPassword authenticates through the password strategy and starts a
// session. Unknown identifiers and wrong secrets both report
// ErrInvalidCredentials.
func (s *Service) SignInPassword(ctx context.Context, t Transport, creds Credentials) (*session.Session, error) {
	if s.password == nil || s.password.Hasher == nil {
		return nil, ErrStrategyNotConfigured
	}
	if creds.Identifier == "" {
		return nil, ErrIdentifierRequired
	}
	if err := s.gate(ctx, creds); err != nil {
		return nil, err
	}

	user, hash, err := s.password.Lookup(ctx, creds.Identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.password.Hasher.Verify(hash, creds.Secret); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, t, creds.Identifier, user, MethodPassword)
}

// ProviderAuthURL builds the authorization URL for a registered provider
// together with a fresh CSRF state token. The caller stores the state and
// checks it on callback.
func (s *Service) ProviderAuthURL(provider string) (url, state string, err error) {
	cfg, ok := s.providers[provider]
	if !ok {
		return "", "", ErrStrategyNotConfigured
	}
	state = s.newState()
	url, err = cfg.Adapter.AuthURL(state)
	if err != nil {
		return "", "", err
	}
	return url, state, nil
}

// SignInProvider completes a delegated sign-in: exchanges the authorization
// code, maps the provider profile to a local user, and starts a session.
// The identifier the provider resolves is unknown before the exchange, so
// only the IP limiter gates this path.
func (s *Service) SignInProvider(ctx context.Context, t Transport, provider, code, clientIP string) (*session.Session, error) {
	cfg, ok := s.providers[provider]
	if !ok {
		return nil, ErrStrategyNotConfigured
	}
	if err := s.gateIP(ctx, clientIP); err != nil {
		return nil, err
	}

	profile, err := cfg.Adapter.ResolveProfile(ctx, code)
	if err != nil {
		return nil, err
	}
	user, err := cfg.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, t, "", user, "provider:"+provider)
}

// SignOut invalidates the current session, if any, and clears the cookie.
func (s *Service) SignOut(ctx context.Context, t Transport) error {
	sessionID := t.GetCookie(s.sessions.CookieName())
	if sessionID != "" {
		if err := s.sessions.InvalidateSession(ctx, sessionID); err != nil {
			return err
		}
	}
	if err := t.RemoveCookie(s.sessions.CreateBlankSessionCookie()); err != nil {
		s.log.DebugContext(ctx, "failed to clear session cookie", slog.String("error", err.Error()))
	}
	return nil
}

// gate runs the configured limiters before a credentialed attempt. The
// throttler burns an escalation step per identifier whether or not the
// credentials turn out to be correct; the bucket counts attempts per
// address.
func (s *Service) gate(ctx context.Context, creds Credentials) error {
	if s.throttle != nil {
		res, err := s.throttle.Consume(ctx, throttleKey(creds.Identifier))
		if err != nil {
			return err
		}
		if !res.Allowed {
			s.log.InfoContext(ctx, "sign-in throttled",
				slog.String("identifier", creds.Identifier),
				slog.Duration("retry_after", res.RetryAfter()))
			return ErrRateLimited
		}
	}
	return s.gateIP(ctx, creds.ClientIP)
}

func (s *Service) gateIP(ctx context.Context, clientIP string) error {
	if s.ipLimiter == nil || clientIP == "" {
		return nil
	}
	res, err := s.ipLimiter.Consume(ctx, ipKey(clientIP), 1)
	if err != nil {
		return err
	}
	if !res.Allowed {
		s.log.InfoContext(ctx, "sign-in rate limited", slog.String("client_ip", clientIP))
		return ErrRateLimited
	}
	return nil
}

// startSession is the shared success path: clear the identifier's throttle
// state, create the session, hand the cookie to the transport.
func (s *Service) startSession(ctx context.Context, t Transport, identifier string, user *session.UserRecord, method string) (*session.Session, error) {
	if s.throttle != nil && identifier != "" {
		if err := s.throttle.Reset(ctx, throttleKey(identifier)); err != nil {
			s.log.WarnContext(ctx, "failed to reset sign-in throttle",
				slog.String("identifier", identifier),
				slog.String("error", err.Error()))
		}
	}

	sess, err := s.sessions.CreateSession(ctx, user.ID, session.Attributes{"auth_method": method})
	if err != nil {
		return nil, err
	}
	if err := t.SetCookie(s.sessions.CreateSessionCookie(sess.ID)); err != nil {
		s.log.DebugContext(ctx, "failed to set session cookie", slog.String("error", err.Error()))
	}
	return sess, nil
}

func throttleKey(identifier string) string { return "signin:" + identifier }
func ipKey(clientIP string) string         { return "signin_ip:" + clientIP }
