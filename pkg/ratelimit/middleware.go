package ratelimit

import (
	"net/http"
	"strconv"
)

// Middleware enforces a token bucket limit on each request, keyed by
// keyFunc. It fails open: requests pass through when the key is empty or
// the store errors, so a storage outage never takes the service down with
// it.
func Middleware(limiter Limiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return MiddlewareWithOptions(limiter, keyFunc)
}

// MiddlewareOption configures middleware behavior.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	cost           int
	onLimitReached func(w http.ResponseWriter, r *http.Request, result *Result)
	skipFunc       func(r *http.Request) bool
}

// WithCost sets how many tokens each request consumes.
func WithCost(cost int) MiddlewareOption {
	return func(c *middlewareConfig) {
		if cost > 0 {
			c.cost = cost
		}
	}
}

// WithOnLimitReached replaces the default 429 response handler.
func WithOnLimitReached(fn func(w http.ResponseWriter, r *http.Request, result *Result)) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.onLimitReached = fn
	}
}

// WithSkipFunc sets a predicate that exempts requests from limiting.
func WithSkipFunc(fn func(r *http.Request) bool) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.skipFunc = fn
	}
}

// MiddlewareWithOptions is Middleware with custom cost, skip predicate and
// limit-reached handler.
func MiddlewareWithOptions(limiter Limiter, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if keyFunc == nil {
		panic("ratelimit.Middleware: keyFunc is required")
	}

	config := &middlewareConfig{
		cost: 1,
		onLimitReached: func(w http.ResponseWriter, r *http.Request, result *Result) {
			retryAfter := int(result.RetryAfter().Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.skipFunc != nil && config.skipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Consume(r.Context(), key, config.cost)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				config.onLimitReached(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
