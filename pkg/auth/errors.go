package auth

import "errors"

var (
	// ErrSessionManagerRequired indicates the facade was constructed
	// without a session manager.
	ErrSessionManagerRequired = errors.New("auth.session_manager_required")

	// ErrStrategyNotConfigured indicates a sign-in entry point was called
	// for a strategy that was never registered.
	ErrStrategyNotConfigured = errors.New("auth.strategy_not_configured")

	// ErrIdentifierRequired indicates a sign-in attempt with an empty
	// identifier.
	ErrIdentifierRequired = errors.New("auth.identifier_required")

	// ErrInvalidCredentials indicates the supplied credentials did not
	// resolve to a user. Deliberately indistinguishable between "unknown
	// identifier" and "wrong secret".
	ErrInvalidCredentials = errors.New("auth.invalid_credentials")

	// ErrRateLimited indicates the throttler or token bucket rejected the
	// attempt before credentials were checked.
	ErrRateLimited = errors.New("auth.rate_limited")

	// ErrInvalidCode indicates a provider authorization code exchange
	// failed.
	ErrInvalidCode = errors.New("auth.invalid_code")
)
