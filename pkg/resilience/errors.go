package resilience

import (
	"fmt"
	"time"
)

// RetryExhaustedError wraps the last error once retries are used up.
// errors.As still finds the underlying error kind.
type RetryExhaustedError struct {
	// Attempts is the number of attempts made
	Attempts int

	// Elapsed is the time spent across all attempts and delays
	Elapsed time.Duration

	// Err is the last attempt's error
	Err error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts in %v: %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
}

// Unwrap returns the last attempt's error.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}
