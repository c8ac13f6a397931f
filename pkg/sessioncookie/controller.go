package sessioncookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/authkit/pkg/timespan"
)

// DefaultName is the cookie name used when none is configured.
const DefaultName = "auth_session"

// neverExpiresTTL is used when the cookie should outlive the session it
// carries; clients treat two years as effectively permanent.
var neverExpiresTTL = timespan.New(52*2, timespan.Weeks).Duration()

// Controller builds session cookie descriptors from a fixed configuration.
// It is stateless and safe for concurrent use.
type Controller struct {
	name      string
	base      Attributes
	expiresIn time.Duration
	nowFunc   func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithName overrides the cookie name.
func WithName(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.name = name
		}
	}
}

// WithExpiresIn sets the cookie lifetime used to compute Max-Age and Expires.
func WithExpiresIn(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.expiresIn = d
		}
	}
}

// WithNeverExpires detaches the cookie lifetime from the session lifetime,
// issuing a far-future expiry instead.
func WithNeverExpires() Option {
	return func(c *Controller) {
		c.expiresIn = neverExpiresTTL
	}
}

// WithPath sets the cookie path attribute.
func WithPath(path string) Option {
	return func(c *Controller) {
		c.base.Path = path
	}
}

// WithDomain sets the cookie domain attribute.
func WithDomain(domain string) Option {
	return func(c *Controller) {
		c.base.Domain = domain
	}
}

// WithSecure toggles the Secure attribute. Disable only for local
// development over plain HTTP.
func WithSecure(secure bool) Option {
	return func(c *Controller) {
		c.base.Secure = secure
	}
}

// WithHTTPOnly toggles the HttpOnly attribute.
func WithHTTPOnly(httpOnly bool) Option {
	return func(c *Controller) {
		c.base.HTTPOnly = httpOnly
	}
}

// WithSameSite sets the SameSite attribute.
func WithSameSite(s SameSite) Option {
	return func(c *Controller) {
		c.base.SameSite = s
	}
}

// New creates a Controller with secure defaults: HttpOnly, Secure,
// SameSite=Lax, Path=/ and a 30-day lifetime.
func New(opts ...Option) *Controller {
	c := &Controller{
		name: DefaultName,
		base: Attributes{
			HTTPOnly: true,
			Secure:   true,
			SameSite: SameSiteLax,
			Path:     "/",
		},
		expiresIn: 30 * 24 * time.Hour,
		nowFunc:   time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the configured cookie name.
func (c *Controller) Name() string {
	return c.name
}

// CreateCookie builds a descriptor carrying the given session id with the
// configured base attributes and a computed expiry.
func (c *Controller) CreateCookie(sessionID string) Cookie {
	attrs := c.base
	attrs.MaxAge = int(c.expiresIn.Seconds())
	attrs.Expires = c.nowFunc().Add(c.expiresIn)

	return Cookie{
		Name:       c.name,
		Value:      sessionID,
		Attributes: attrs,
	}
}

// CreateBlankCookie builds a descriptor that instructs the client to drop
// the session cookie immediately.
func (c *Controller) CreateBlankCookie() Cookie {
	attrs := c.base
	attrs.MaxAge = -1
	attrs.Expires = time.Unix(0, 0)

	return Cookie{
		Name:       c.name,
		Value:      "",
		Attributes: attrs,
	}
}

// Parse extracts the session id from a raw Cookie request header. It returns
// false if the header is malformed or the named cookie is absent or empty.
func (c *Controller) Parse(rawCookieHeader string) (string, bool) {
	if strings.TrimSpace(rawCookieHeader) == "" {
		return "", false
	}

	cookies, err := http.ParseCookie(rawCookieHeader)
	if err != nil {
		return "", false
	}

	for _, ck := range cookies {
		if ck.Name == c.name && ck.Value != "" {
			return ck.Value, true
		}
	}

	return "", false
}
