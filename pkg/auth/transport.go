package auth

import "github.com/dmitrymomot/authkit/pkg/sessioncookie"

// Transport abstracts cookie I/O on whatever request/response mechanism
// hosts the facade. Implementations wrap a framework's request context; the
// facade never touches transport state directly.
//
// GetCookie returns the named cookie's value, or "" when absent. SetCookie
// and RemoveCookie may fail where the framework forbids mutation at the
// current call site; the facade logs and swallows those failures.
type Transport interface {
	GetCookie(name string) string
	SetCookie(cookie sessioncookie.Cookie) error
	RemoveCookie(cookie sessioncookie.Cookie) error
}
