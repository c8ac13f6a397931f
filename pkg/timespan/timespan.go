package timespan

import "time"

// Unit is a calendar-agnostic time unit used to declare spans.
type Unit string

const (
	Milliseconds Unit = "ms"
	Seconds      Unit = "s"
	Minutes      Unit = "m"
	Hours        Unit = "h"
	Days         Unit = "d"
	Weeks        Unit = "w"
)

// TimeSpan is a fixed span of time expressed as a value and a unit.
// The zero value is a span of zero duration.
type TimeSpan struct {
	Value int64
	Unit  Unit
}

// New creates a TimeSpan from a value and unit.
func New(value int64, unit Unit) TimeSpan {
	return TimeSpan{Value: value, Unit: unit}
}

// FromDuration converts a time.Duration into a millisecond-based TimeSpan.
func FromDuration(d time.Duration) TimeSpan {
	return TimeSpan{Value: d.Milliseconds(), Unit: Milliseconds}
}

// Duration returns the span as a time.Duration.
func (ts TimeSpan) Duration() time.Duration {
	switch ts.Unit {
	case Milliseconds:
		return time.Duration(ts.Value) * time.Millisecond
	case Seconds:
		return time.Duration(ts.Value) * time.Second
	case Minutes:
		return time.Duration(ts.Value) * time.Minute
	case Hours:
		return time.Duration(ts.Value) * time.Hour
	case Days:
		return time.Duration(ts.Value) * 24 * time.Hour
	case Weeks:
		return time.Duration(ts.Value) * 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Milliseconds returns the span length in whole milliseconds.
func (ts TimeSpan) Milliseconds() int64 {
	return ts.Duration().Milliseconds()
}

// Expiry returns the timestamp at which something created at the given
// moment and living for this span expires.
func (ts TimeSpan) Expiry(from time.Time) time.Time {
	return from.Add(ts.Duration())
}

// IsWithinExpiration reports whether the expiration timestamp is still in
// the future. A timestamp exactly at the current instant counts as expired.
func IsWithinExpiration(expiresAt time.Time) bool {
	return time.Now().Before(expiresAt)
}

// IsWithinExpirationAt is the clock-injectable variant of IsWithinExpiration.
func IsWithinExpirationAt(now, expiresAt time.Time) bool {
	return now.Before(expiresAt)
}
