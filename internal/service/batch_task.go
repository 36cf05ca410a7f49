package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/logger"
	"github.com/phrazzld/imagebatch/internal/platform/metrics"
	"github.com/phrazzld/imagebatch/internal/task"
)

// BatchPayload is the serialized form of a batch job.
type BatchPayload struct {
	FileID string                 `json:"file_id"`
	Items  []domain.SubmittedItem `json:"items"`
}

// BatchTask runs one batch in the background with its own job log.
type BatchTask struct {
	id      uuid.UUID
	fileID  string
	items   []domain.SubmittedItem
	service *BatchService
	status  task.TaskStatus
	results []domain.RowResult
}

// Ensure BatchTask implements task.Task interface
var _ task.Task = (*BatchTask)(nil)

// NewBatchTask creates a pending batch job.
func NewBatchTask(service *BatchService, fileID string, items []domain.SubmittedItem) *BatchTask {
	return &BatchTask{
		id:      uuid.New(),
		fileID:  fileID,
		items:   items,
		service: service,
		status:  task.TaskStatusPending,
	}
}

// ID returns the task's unique identifier
func (t *BatchTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *BatchTask) Type() string {
	return task.TaskTypeImageBatch
}

// Payload returns the batch as JSON
func (t *BatchTask) Payload() []byte {
	data, _ := json.Marshal(BatchPayload{FileID: t.fileID, Items: t.items})
	return data
}

// Status returns the current task status
func (t *BatchTask) Status() task.TaskStatus {
	return t.status
}

// Results returns the row results of a finished run.
func (t *BatchTask) Results() []domain.RowResult {
	return t.results
}

// Execute processes the batch. Records are teed into a per-job log file,
// which is uploaded and removed afterwards when an uploader is configured.
func (t *BatchTask) Execute(ctx context.Context) (err error) {
	t.status = task.TaskStatusProcessing
	defer func() {
		if err != nil {
			t.status = task.TaskStatusFailed
		} else {
			t.status = task.TaskStatusCompleted
		}
		metrics.CounterBatchJobs.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	s := t.service
	jobLog, err := logger.NewJobLogger(s.logger, s.config.LogDir, t.fileID)
	if err != nil {
		return fmt.Errorf("failed to create job logger: %w", err)
	}
	log := jobLog.With("run_id", t.id.String(), "file_id", t.fileID)

	log.Info("batch job started", "rows", len(t.items))
	t.results = s.ProcessBatch(logger.WithLogger(ctx, log), t.items)
	log.Info("batch job finished")

	if err := jobLog.Close(); err != nil {
		s.logger.Warn("failed to close job log", "error", err, "path", jobLog.Path())
	}

	if s.uploader == nil {
		return nil
	}
	return t.uploadLog(ctx, jobLog.Path())
}

func (t *BatchTask) uploadLog(ctx context.Context, path string) error {
	s := t.service

	url, err := s.uploader.UploadFile(ctx, path)
	metrics.CounterJobLogUploads.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		s.logger.Error("failed to upload job log",
			"error", err,
			"file_id", t.fileID,
			"path", path)
		return fmt.Errorf("failed to upload job log: %w", err)
	}

	s.logger.Info("job log uploaded", "file_id", t.fileID, "url", url)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove local job log", "error", err, "path", path)
	}
	return nil
}
