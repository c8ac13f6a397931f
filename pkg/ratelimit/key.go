package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// maxKeyLength bounds key length so storage backends don't accumulate
// arbitrarily long keys.
const maxKeyLength = 64

// KeyFunc extracts a rate limit key from an HTTP request. Returning an
// empty string skips rate limiting for the request.
type KeyFunc func(*http.Request) string

// KeyByIP keys requests by client IP, preferring the first X-Forwarded-For
// hop when present.
func KeyByIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// KeyByPath keys requests by URL path.
func KeyByPath(r *http.Request) string {
	return r.URL.Path
}

// Composite joins multiple key functions into one key. Keys longer than 64
// chars are replaced by a 128-bit SHA-256 prefix in hex.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		if len(parts) == 0 {
			return ""
		}

		combined := strings.Join(parts, ":")
		if len(combined) > maxKeyLength {
			hash := sha256.Sum256([]byte(combined))
			return hex.EncodeToString(hash[:16])
		}

		return combined
	}
}
