package mongo

import "errors"

var (
	// ErrNotReady indicates all connection attempts failed.
	ErrNotReady = errors.New("mongo.not_ready")

	// ErrHealthcheckFailed indicates a failed ping.
	ErrHealthcheckFailed = errors.New("mongo.healthcheck_failed")
)
