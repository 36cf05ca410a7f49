package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a background job.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypeImageBatch is the type of a job that runs one submitted batch.
const TaskTypeImageBatch = "image_batch"

// Task is a background job run by a Runner.
type Task interface {
	ID() uuid.UUID
	Type() string

	// Payload is the JSON description of the job, kept for logging.
	Payload() []byte

	Status() TaskStatus

	// Execute runs the job. ctx is cancelled when the runner stops.
	Execute(ctx context.Context) error
}

// JobState is the last known state of a submitted task.
type JobState struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
