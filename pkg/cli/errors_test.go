package cli

import (
	"errors"
	"fmt"
	"testing"

	"llm-dev-ops/connector-hub/pkg/providers"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with field",
			err:  &ConfigError{Field: "cache.backend", Message: "unsupported backend"},
			want: "config error in cache.backend: unsupported backend",
		},
		{
			name: "without field",
			err:  NewConfigError("", "file not found"),
			want: "config error: file not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("listener closed")
	err := NewCommandError("serve", underlying)

	if want := "command serve failed: listener closed"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() did not find the wrapped error")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "config", err: NewConfigError("routing", "bad"), want: ExitConfig},
		{name: "wrapped config", err: fmt.Errorf("load: %w", NewConfigError("", "bad")), want: ExitConfig},
		{name: "validation", err: &providers.ValidationError{Field: "model", Message: "required"}, want: ExitValidation},
		{name: "rate limited", err: &providers.RateLimitedError{}, want: ExitRateLimited},
		{name: "upstream 429", err: &providers.ProviderError{StatusCode: 429}, want: ExitRateLimited},
		{name: "circuit open", err: &providers.CircuitOpenError{}, want: ExitUnavailable},
		{name: "upstream 503", err: NewCommandError("complete", &providers.ProviderError{StatusCode: 503}), want: ExitUnavailable},
		{name: "upstream 400", err: &providers.ProviderError{StatusCode: 400}, want: ExitFailure},
		{name: "plain", err: errors.New("boom"), want: ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
