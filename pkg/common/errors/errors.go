package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the voxflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCycle indicates that a workflow graph contains a dependency cycle
	ErrCycle = errors.New("workflow graph contains a cycle")

	// ErrUnknownNode indicates a reference to a node that was never added
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownPort indicates a reference to an input or output port the
	// interface does not declare
	ErrUnknownPort = errors.New("unknown port")

	// ErrPortConnected indicates that an input port already has an inbound
	// connection or a static value
	ErrPortConnected = errors.New("input port already connected")

	// ErrUnknownPlugin indicates that no executor plugin is registered
	// under the requested name
	ErrUnknownPlugin = errors.New("unknown executor plugin")

	// ErrLockHeld indicates that another run holds the work directory lock
	ErrLockHeld = errors.New("work directory lock held by another run")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError describes a configuration or graph construction value
// that failed validation.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for the given module and field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint to the error and returns it.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s %s (got %v)", e.Module, e.Field, e.Reason, e.Value)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// Is makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrLockHeld)
}
