package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrTaskCreation is returned when the remote task-creation call fails,
	// either at the transport level or with a non-2xx response. It is fatal
	// for the item and never retried.
	ErrTaskCreation = errors.New("task creation failed")

	// ErrRowProcessing wraps any other failure while a single row is being
	// processed (store errors, recovered panics).
	ErrRowProcessing = errors.New("row processing failed")

	// ErrValidation is returned when a submitted item fails validation.
	ErrValidation = errors.New("validation failed")
)

// Messages reported to callers in RowResult.Error.
const (
	MsgFailedToStart = "Failed to start task."
	MsgIncomplete    = "Task did not complete successfully."
)
