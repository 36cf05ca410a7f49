package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/imagebatch/internal/domain"
)

// Common service errors - sentinel errors used across service implementations.
// The API layer maps them to HTTP status codes.
var (
	// ErrEmptyBatch indicates a batch without any rows.
	ErrEmptyBatch = errors.New("batch contains no rows")

	// ErrJobNotFound indicates an unknown background job id.
	ErrJobNotFound = errors.New("job not found")
)

// RowError wraps a failure of one pipeline step for a single row. It always
// matches domain.ErrRowProcessing.
type RowError struct {
	// Operation is the step that failed (e.g., "insert_tracking_row", "wait")
	Operation string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for RowError.
func (e *RowError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

// Unwrap returns both the row processing sentinel and the cause.
func (e *RowError) Unwrap() []error {
	return []error{domain.ErrRowProcessing, e.Err}
}

// NewRowError creates a RowError. It returns nil for a nil err.
func NewRowError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &RowError{Operation: operation, Err: err}
}
