package store

import (
	"errors"
	"fmt"
)

// Errors returned by every ResultStore implementation. Driver errors are
// mapped onto them so callers never inspect driver-specific codes.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when the datastore rejects a row, for
	// instance on a NOT NULL or CHECK violation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTrackingRowNotFound is returned for an unknown result id.
	ErrTrackingRowNotFound = fmt.Errorf("%w: tracking row", ErrNotFound)
)

// IsNotFoundError reports whether err is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError adds the entity and operation to a failed store call.
type StoreError struct {
	Entity    string // e.g. "tracking_row"
	Operation string // e.g. "insert", "read"
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError builds a StoreError wrapping err.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
