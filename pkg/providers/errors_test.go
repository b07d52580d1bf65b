package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

func TestProviderError(t *testing.T) {
	t.Run("with status code", func(t *testing.T) {
		err := &ProviderError{
			Provider:   "openai",
			StatusCode: 500,
			Message:    "internal error",
		}

		expected := `provider "openai" error (status 500): internal error`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("without status code", func(t *testing.T) {
		err := &ProviderError{
			Provider: "openai",
			Message:  "connection failed",
		}

		expected := `provider "openai" error: connection failed`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("network timeout")
		err := &ProviderError{
			Provider: "openai",
			Message:  "request failed",
			Cause:    cause,
		}

		if !errors.Is(err, cause) {
			t.Error("expected error to wrap cause")
		}
		if !errors.Is(err, ErrProvider) {
			t.Error("expected error to match ErrProvider")
		}
	})
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"validation", NewValidationError("model", "is required"), ErrValidation},
		{"timeout", &TimeoutError{Provider: "p", Timeout: time.Second}, ErrTimeout},
		{"timeout as deadline", &TimeoutError{Provider: "p"}, context.DeadlineExceeded},
		{"circuit", &CircuitOpenError{Key: "p/m", RetryAfter: time.Second}, ErrCircuitOpen},
		{"rate limited", &RateLimitedError{Caller: "c", Reason: "rps"}, ErrRateLimited},
		{"cache", &CacheError{Op: "get", Backend: "redis", Cause: errors.New("down")}, ErrCache},
		{"stream", &StreamInterruptedError{Provider: "p", Cause: errors.New("reset")}, ErrStreamInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("expected %v to match %v", tt.err, tt.sentinel)
			}
			wrapped := fmt.Errorf("stage: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("expected wrapped error to match %v", tt.sentinel)
			}
		})
	}
}

type tempNetErr struct{}

func (tempNetErr) Error() string   { return "i/o timeout" }
func (tempNetErr) Timeout() bool   { return true }
func (tempNetErr) Temporary() bool { return true }

var _ net.Error = tempNetErr{}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable provider error", &ProviderError{StatusCode: 503, Retryable: true}, true},
		{"non-retryable provider error", &ProviderError{StatusCode: 400}, false},
		{"timeout", &TimeoutError{Provider: "p"}, true},
		{"wrapped timeout", fmt.Errorf("attempt 2: %w", &TimeoutError{}), true},
		{"net timeout", tempNetErr{}, true},
		{"caller cancel", context.Canceled, false},
		{"validation", NewValidationError("messages", "empty"), false},
		{"circuit open", &CircuitOpenError{}, false},
		{"rate limited", &RateLimitedError{}, false},
		{"stream interrupted", &StreamInterruptedError{Cause: &ProviderError{Retryable: true}}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 504}
	permanent := []int{400, 401, 403, 404, 422}

	for _, s := range retryable {
		if !ClassifyStatus(s) {
			t.Errorf("status %d should be retryable", s)
		}
	}
	for _, s := range permanent {
		if ClassifyStatus(s) {
			t.Errorf("status %d should not be retryable", s)
		}
	}
}

func TestRetryAfterHint(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &ProviderError{StatusCode: 429, Retryable: true, RetryAfter: 3 * time.Second})
	if got := RetryAfterHint(err); got != 3*time.Second {
		t.Errorf("expected 3s, got %v", got)
	}
	if got := RetryAfterHint(errors.New("x")); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err      error
		contains string
	}{
		{&CircuitOpenError{Key: "openai/gpt-4", RetryAfter: 1500 * time.Millisecond}, "retry after 1.5s"},
		{&RateLimitedError{Caller: "alice", Reason: "requests per second"}, `caller "alice"`},
		{&StreamInterruptedError{Provider: "openai", ChunksDelivered: 2, Cause: errors.New("reset")}, "after 2 chunks"},
		{&ParseError{Provider: "openai", Message: "bad json"}, "parse error: bad json"},
		{&ConfigError{Provider: "x", Field: "base_url", Message: "required"}, "base_url: required"},
		{NewValidationError("", "no route"), "validation error: no route"},
	}

	for _, tt := range tests {
		if !strings.Contains(tt.err.Error(), tt.contains) {
			t.Errorf("expected %q to contain %q", tt.err.Error(), tt.contains)
		}
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), KindCanceled},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"validation", NewValidationError("model", "unknown model %q", "x"), KindValidation},
		{"timeout", &TimeoutError{Provider: "openai", Timeout: time.Second}, KindTimeout},
		{"circuit", &CircuitOpenError{Key: "openai/gpt-4"}, KindCircuitOpen},
		{"rate limited", &RateLimitedError{Caller: "bob"}, KindRateLimited},
		{"cache", &CacheError{Op: "get", Backend: "redis", Cause: errors.New("down")}, KindCache},
		{"stream", &StreamInterruptedError{Provider: "openai", Cause: errors.New("reset")}, KindStreamInterrupted},
		{"throttled", &ProviderError{StatusCode: 429}, KindThrottled},
		{"server", &ProviderError{StatusCode: 503}, KindServer},
		{"client", &ProviderError{StatusCode: 401}, KindClient},
		{"network", &ProviderError{Cause: errors.New("dial tcp")}, KindNetwork},
		{"unknown", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.want {
				t.Errorf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}
