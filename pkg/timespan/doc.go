// Package timespan provides small helpers for expressing spans of time in
// human units (seconds, days, weeks) and for computing and comparing
// expiration timestamps derived from them.
//
// It exists so that lifetime configuration such as "30 days" or "2 weeks"
// can be expressed declaratively and converted to time.Duration at the edges:
//
//	ttl := timespan.New(30, timespan.Days)
//	expiresAt := ttl.Expiry(time.Now())
//	if !timespan.IsWithinExpiration(expiresAt) {
//	    // expired
//	}
package timespan
