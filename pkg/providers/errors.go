package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	// ErrValidation indicates a malformed or unroutable request.
	ErrValidation = errors.New("validation failed")

	// ErrProvider indicates an upstream provider failure.
	ErrProvider = errors.New("provider error")

	// ErrTimeout indicates an attempt exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrCircuitOpen indicates the circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrRateLimited indicates the caller exhausted its local quota.
	ErrRateLimited = errors.New("rate limited")

	// ErrCache indicates a cache backend failure.
	ErrCache = errors.New("cache error")

	// ErrStreamInterrupted indicates a stream failed after it started.
	ErrStreamInterrupted = errors.New("stream interrupted")
)

// ValidationError represents a request that cannot be routed or sent.
// It is never retried.
type ValidationError struct {
	// Field is the offending request field
	Field string

	// Message describes the problem
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProviderError represents an upstream failure.
// Retryable is decided by the adapter from the provider's status classification.
type ProviderError struct {
	// Provider is the name of the provider that returned the error
	Provider string

	// Model is the requested model, if known
	Model string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Retryable reports whether the call may be safely retried
	Retryable bool

	// RetryAfter is the provider's suggested wait, if any
	RetryAfter time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrProvider.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// TimeoutError represents an attempt that exceeded its deadline.
// Timeouts are always retryable.
type TimeoutError struct {
	// Provider is the name of the provider that timed out
	Provider string

	// Timeout is the deadline that was exceeded
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("provider %q request timed out after %v", e.Provider, e.Timeout)
	}
	return fmt.Sprintf("provider %q request timed out", e.Provider)
}

// Is reports whether target is ErrTimeout or context.DeadlineExceeded.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == context.DeadlineExceeded
}

// CircuitOpenError is returned without contacting the provider while the
// breaker for Key is open or its half-open trial is in flight.
type CircuitOpenError struct {
	// Key is the provider/model pair
	Key string

	// RetryAfter estimates when a call may be admitted
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s (retry after %v)", e.Key, e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether target is ErrCircuitOpen.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// RateLimitedError is returned before any upstream work when a caller's
// local quota is exhausted.
type RateLimitedError struct {
	// Caller is the rate limit key
	Caller string

	// Reason names the exhausted limit
	Reason string

	// RetryAfter is when quota becomes available
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: caller %q: %s (retry after %v)", e.Caller, e.Reason, e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether target is ErrRateLimited.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// CacheError represents a cache backend failure. It is logged and absorbed
// and never becomes a request's outcome.
type CacheError struct {
	// Op is the backend operation (get, set, invalidate, sweep)
	Op string

	// Backend is the backend name
	Backend string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrCache.
func (e *CacheError) Is(target error) bool {
	return target == ErrCache
}

// StreamInterruptedError marks a transport failure after streaming began.
// It is delivered on a terminal chunk and never retried.
type StreamInterruptedError struct {
	// Provider is the name of the streaming provider
	Provider string

	// ChunksDelivered counts chunks emitted before the failure
	ChunksDelivered int

	// Cause is the underlying transport error
	Cause error
}

// Error implements the error interface.
func (e *StreamInterruptedError) Error() string {
	return fmt.Sprintf("provider %q stream interrupted after %d chunks: %v", e.Provider, e.ChunksDelivered, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamInterruptedError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrStreamInterrupted.
func (e *StreamInterruptedError) Is(target error) bool {
	return target == ErrStreamInterrupted
}

// ParseError represents a malformed provider response.
type ParseError struct {
	// Provider is the name of the provider
	Provider string

	// Message describes what failed to parse
	Message string

	// RawResponse is the raw response body (truncated)
	RawResponse string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q parse error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ConfigError represents an invalid provider configuration.
type ConfigError struct {
	// Provider is the name of the misconfigured provider
	Provider string

	// Field is the offending configuration field
	Field string

	// Message describes the problem
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q config error: %s: %s", e.Provider, e.Field, e.Message)
}

// IsRetryable reports whether err may be retried. This is the only
// classification the resilience layer trusts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// RetryAfterHint extracts a provider-suggested wait from err.
func RetryAfterHint(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

// ClassifyStatus reports whether an HTTP status is retryable.
// 408, 429 and 5xx are transient; other 4xx are caller mistakes.
func ClassifyStatus(status int) bool {
	switch {
	case status == 408, status == 429:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// Error kinds reported by ErrorKind.
const (
	KindValidation        = "validation"
	KindTimeout           = "timeout"
	KindCircuitOpen       = "circuit_open"
	KindRateLimited       = "rate_limited"
	KindCache             = "cache"
	KindStreamInterrupted = "stream_interrupted"
	KindCanceled          = "canceled"
	KindThrottled         = "throttled"
	KindServer            = "server_error"
	KindClient            = "client_error"
	KindNetwork           = "network"
	KindUnknown           = "unknown"
)

// ErrorKind returns a short, bounded label for err, suitable for metric
// labels and log fields. It returns "" for nil.
func ErrorKind(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrStreamInterrupted):
		return KindStreamInterrupted
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrCache):
		return KindCache
	case errors.As(err, &pe):
		switch {
		case pe.StatusCode == 429:
			return KindThrottled
		case pe.StatusCode >= 500:
			return KindServer
		case pe.StatusCode >= 400:
			return KindClient
		default:
			return KindNetwork
		}
	default:
		return KindUnknown
	}
}
