package ratelimit

import "time"

// Config is the quota for a single caller. Zero disables a dimension.
type Config struct {
	// RequestsPerSecond limits requests per second using token bucket.
	RequestsPerSecond int

	// RequestsPerMinute limits requests per minute using token bucket.
	RequestsPerMinute int

	// RequestsPerHour limits requests per hour using token bucket.
	RequestsPerHour int

	// TokensPerMinute limits tokens (prompt+completion) per minute.
	TokensPerMinute int

	// TokensPerHour limits tokens per hour.
	TokensPerHour int

	// MaxConcurrent limits simultaneous requests. A stream counts until it
	// is released.
	MaxConcurrent int
}

// Unlimited reports whether no dimension is configured.
func (c Config) Unlimited() bool {
	return c == Config{}
}

// CheckResult contains the result of a rate limit check.
type CheckResult struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Reason explains why the request was rejected (if Allowed=false).
	Reason string

	// Limit is the configured limit value.
	Limit int64

	// Remaining is how many requests/tokens remain in the window.
	Remaining int64

	// RetryAfter suggests how long to wait before retrying.
	RetryAfter time.Duration
}
