package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/logger"
	"github.com/phrazzld/imagebatch/internal/store"
	"github.com/phrazzld/imagebatch/internal/task"
)

// DefaultConcurrency bounds the rows processed at once when unset.
const DefaultConcurrency = 16

// RowHandler processes a single row.
type RowHandler interface {
	ProcessRow(ctx context.Context, item domain.SubmittedItem) domain.RowResult
}

// TaskRunner defines the interface for submitting background tasks
type TaskRunner interface {
	// Submit adds a task to the processing queue
	Submit(ctx context.Context, task task.Task) error

	// State returns the last known state of a submitted task
	State(id uuid.UUID) (task.JobState, bool)
}

// LogUploader stores a finished job log and returns its URL.
type LogUploader interface {
	UploadFile(ctx context.Context, localPath string) (string, error)
}

// BatchConfig configures a BatchService.
type BatchConfig struct {
	// Concurrency bounds the rows of one batch processed at once.
	Concurrency int

	// LogDir receives per-job log files.
	LogDir string
}

// BatchService runs batches of rows, inline or as background jobs.
type BatchService struct {
	rows     RowHandler
	results  store.ResultStore
	pool     ConnPool
	runner   TaskRunner
	uploader LogUploader
	config   BatchConfig
	logger   *slog.Logger
}

// NewBatchService creates a BatchService. Result listings lease their
// connection from pool. runner and uploader may be nil:
// without a runner background submission is unavailable, without an
// uploader job logs stay on local disk.
func NewBatchService(
	rows RowHandler,
	results store.ResultStore,
	pool ConnPool,
	runner TaskRunner,
	uploader LogUploader,
	config BatchConfig,
	logger *slog.Logger,
) *BatchService {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.LogDir == "" {
		config.LogDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchService{
		rows:     rows,
		results:  results,
		pool:     pool,
		runner:   runner,
		uploader: uploader,
		config:   config,
		logger:   logger,
	}
}

// PrepareItems validates items and stamps them with fileID, generating a
// new file id when empty. Items keep their own unique id if already set.
func PrepareItems(fileID string, items []domain.SubmittedItem) (string, []domain.SubmittedItem, error) {
	if len(items) == 0 {
		return "", nil, ErrEmptyBatch
	}
	if fileID == "" {
		fileID = uuid.NewString()
	}

	prepared := make([]domain.SubmittedItem, len(items))
	for i, item := range items {
		if item.UniqueID == "" {
			item.UniqueID = fileID
		}
		if err := item.Validate(); err != nil {
			return "", nil, fmt.Errorf("row %d: %w", i, err)
		}
		prepared[i] = item
	}
	return fileID, prepared, nil
}

// ProcessBatch processes every item with bounded concurrency and returns
// the results in input order. It returns once every row has finished.
func (s *BatchService) ProcessBatch(ctx context.Context, items []domain.SubmittedItem) []domain.RowResult {
	results := make([]domain.RowResult, len(items))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)

	for i, item := range items {
		g.Go(func() error {
			results[i] = s.rows.ProcessRow(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Succeeded() {
			succeeded++
		}
	}
	logger.FromContextOr(ctx, s.logger).Info("batch processed",
		"rows", len(items),
		"succeeded", succeeded,
		"failed", len(items)-succeeded)

	return results
}

// SubmitBatch queues the batch as a background job and returns its id.
func (s *BatchService) SubmitBatch(ctx context.Context, fileID string, items []domain.SubmittedItem) (uuid.UUID, error) {
	if s.runner == nil {
		return uuid.Nil, fmt.Errorf("background processing is not configured")
	}

	job := NewBatchTask(s, fileID, items)
	if err := s.runner.Submit(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to submit batch %s: %w", fileID, err)
	}

	logger.FromContextOr(ctx, s.logger).Info("batch submitted",
		"file_id", fileID,
		"job_id", job.ID(),
		"rows", len(items))
	return job.ID(), nil
}

// JobState returns the state of a background job.
func (s *BatchService) JobState(id uuid.UUID) (task.JobState, error) {
	if s.runner == nil {
		return task.JobState{}, ErrJobNotFound
	}
	state, ok := s.runner.State(id)
	if !ok {
		return task.JobState{}, ErrJobNotFound
	}
	return state, nil
}

// ListResults returns the tracking rows of a batch.
func (s *BatchService) ListResults(ctx context.Context, fileID string) ([]*domain.TrackingRow, error) {
	var rows []*domain.TrackingRow
	err := s.pool.WithConn(ctx, func(db store.DBTX) error {
		var err error
		rows, err = s.results.WithDB(db).ListByFile(ctx, fileID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list results of %s: %w", fileID, err)
	}
	return rows, nil
}
