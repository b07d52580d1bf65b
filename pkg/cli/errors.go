package cli

import (
	"errors"
	"fmt"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitValidation  = 3
	ExitRateLimited = 4
	ExitUnavailable = 5
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var ce *ConfigError
	if errors.As(err, &ce) {
		return ExitConfig
	}

	switch providers.ErrorKind(err) {
	case providers.KindValidation:
		return ExitValidation
	case providers.KindRateLimited, providers.KindThrottled:
		return ExitRateLimited
	case providers.KindCircuitOpen, providers.KindServer, providers.KindNetwork, providers.KindTimeout:
		return ExitUnavailable
	default:
		return ExitFailure
	}
}
