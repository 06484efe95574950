// Package shared provides constants and helpers used across CLI subpackages.
// This package has no dependencies on other CLI packages to avoid circular imports.
package shared

import (
	"errors"
	"fmt"
)

// Command group IDs for organizing help output
const (
	GroupQC            = "qc"
	GroupConfiguration = "configuration"
)

// ConfigFlag is the persistent flag naming the JSON config file.
const ConfigFlag = "config"

// Exit codes for CLI commands
const (
	ExitSuccess          = 0
	ExitQCFailed         = 1
	ExitInvalidArguments = 3
	ExitMissingInput     = 4
	ExitSchemaFailed     = 6
)

// exitError is a custom error type that carries an exit code. A nil err
// means the command already reported the failure itself.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// NewExitError creates a new exit error with the given code.
func NewExitError(code int) error {
	return &exitError{code: code}
}

// WithExitCode attaches an exit code to err. It returns nil for a nil err.
func WithExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// ExitCode returns the exit code from an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return ExitQCFailed
}

// IsReported reports whether err carries no message of its own, so printing
// it would only repeat what the command already wrote.
func IsReported(err error) bool {
	var e *exitError
	return errors.As(err, &e) && e.err == nil
}
