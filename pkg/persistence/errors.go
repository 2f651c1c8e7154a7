// Standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPipelineNotFound indicates a pipeline was not found by the given identifier.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrPipelineAlreadyExists indicates a pipeline with the same identifier already exists.
	ErrPipelineAlreadyExists = errors.New("pipeline already exists")

	// ErrConnectionNotFound indicates a connection was not found by the given identifier.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrNodeNotFound indicates a pipeline node was not found by the given identifier.
	ErrNodeNotFound = errors.New("pipeline node not found")
)

// PipelineError wraps pipeline-related errors with additional context.
type PipelineError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	PipelineID string // Pipeline ID if applicable
	Err        error  // Underlying error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s operation failed for pipeline %s: %v", e.Op, e.PipelineID, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPipelineError creates a new pipeline error with context.
func NewPipelineError(op, pipelineID string, err error) *PipelineError {
	return &PipelineError{
		Op:         op,
		PipelineID: pipelineID,
		Err:        err,
	}
}

// IsPipelineNotFound checks if an error indicates a pipeline was not found.
func IsPipelineNotFound(err error) bool {
	return errors.Is(err, ErrPipelineNotFound)
}

// IsConnectionNotFound checks if an error indicates a connection was not found.
func IsConnectionNotFound(err error) bool {
	return errors.Is(err, ErrConnectionNotFound)
}

// IsNodeNotFound checks if an error indicates a pipeline node was not found.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}
