package sessioncookie

import (
	"net/http"
	"time"
)

// SameSite mirrors the cookie SameSite wire values.
type SameSite string

const (
	SameSiteLax    SameSite = "lax"
	SameSiteStrict SameSite = "strict"
	SameSiteNone   SameSite = "none"
)

// Attributes are the wire attributes attached to a session cookie.
type Attributes struct {
	HTTPOnly bool
	Secure   bool
	SameSite SameSite
	Path     string
	Domain   string
	// MaxAge in seconds. Negative means "delete now" and serializes as
	// Max-Age=0 alongside an epoch Expires.
	MaxAge  int
	Expires time.Time
}

// Cookie is a transport-agnostic session cookie descriptor.
type Cookie struct {
	Name       string
	Value      string
	Attributes Attributes
}

// HTTPCookie converts the descriptor into a *http.Cookie.
func (c Cookie) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Attributes.Path,
		Domain:   c.Attributes.Domain,
		MaxAge:   c.Attributes.MaxAge,
		Expires:  c.Attributes.Expires,
		Secure:   c.Attributes.Secure,
		HttpOnly: c.Attributes.HTTPOnly,
		SameSite: c.Attributes.SameSite.httpSameSite(),
	}
}

// Serialize renders the descriptor as a Set-Cookie header value.
func (c Cookie) Serialize() string {
	return c.HTTPCookie().String()
}

func (s SameSite) httpSameSite() http.SameSite {
	switch s {
	case SameSiteLax:
		return http.SameSiteLaxMode
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
