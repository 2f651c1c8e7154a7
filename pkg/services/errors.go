// Package services provides the business logic for pipeline management.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPipelineNameRequired = errors.New("pipeline name is required")
	ErrPipelineNil          = errors.New("pipeline cannot be nil")
	ErrUnknownWidgetDef     = errors.New("unknown widget definition")
	ErrUnknownPort          = errors.New("port is not declared on the widget definition")
	ErrPortIncompatible     = errors.New("output and input port types are incompatible")

	// Business Logic Conflicts (409 Conflict).
	ErrConnectionExists = errors.New("connection already exists")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrPipelineNameRequired) ||
		errors.Is(err, ErrPipelineNil) ||
		errors.Is(err, ErrUnknownWidgetDef) ||
		errors.Is(err, ErrUnknownPort) ||
		errors.Is(err, ErrPortIncompatible)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConnectionExists)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
