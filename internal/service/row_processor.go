package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/logger"
	"github.com/phrazzld/imagebatch/internal/platform/metrics"
	"github.com/phrazzld/imagebatch/internal/store"
)

// TaskCreator creates remote image tasks.
type TaskCreator interface {
	CreateTask(ctx context.Context, item domain.SubmittedItem) (*domain.RemoteTask, error)
}

// ConnPool runs a function on a leased datastore connection.
type ConnPool interface {
	WithConn(ctx context.Context, fn func(db store.DBTX) error) error
}

// CompletionWaiter blocks until a tracking row completes or is abandoned.
type CompletionWaiter interface {
	Wait(ctx context.Context, resultID int64) (domain.Completion, error)
}

// RowProcessor drives one submitted row through creation, tracking and
// waiting.
type RowProcessor struct {
	tasks   TaskCreator
	pool    ConnPool
	results store.ResultStore
	waiter  CompletionWaiter
	logger  *slog.Logger
}

// NewRowProcessor creates a RowProcessor.
func NewRowProcessor(
	tasks TaskCreator,
	pool ConnPool,
	results store.ResultStore,
	waiter CompletionWaiter,
	logger *slog.Logger,
) *RowProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowProcessor{
		tasks:   tasks,
		pool:    pool,
		results: results,
		waiter:  waiter,
		logger:  logger,
	}
}

// ProcessRow processes item and reports the outcome. It never fails: every
// error, including a panic, is returned as the result's error message, and
// the row index and search value are always echoed.
func (p *RowProcessor) ProcessRow(ctx context.Context, item domain.SubmittedItem) (result domain.RowResult) {
	log := logger.FromContextOr(ctx, p.logger).With(
		"absolute_row_index", item.AbsoluteRowIndex,
		"file_id", item.UniqueID,
	)

	defer func() {
		if rec := recover(); rec != nil {
			err := NewRowError("process_row", fmt.Errorf("panic: %v", rec))
			log.Error("row processing panicked", "error", err)
			result = domain.NewRowError(item, err.Error())
		}
		metrics.CounterRowsProcessed.WithLabelValues(rowOutcome(result)).Inc()
	}()

	log.Info("processing row", "search_value", item.SearchValue)

	task, err := p.tasks.CreateTask(ctx, item)
	if err != nil {
		log.Error("failed to create image task", "error", err)
		return domain.NewRowError(item, err.Error())
	}

	row := &domain.TrackingRow{
		EntryID:     item.AbsoluteRowIndex,
		FileID:      item.UniqueID,
		SearchValue: item.SearchValue,
	}
	err = p.pool.WithConn(ctx, func(db store.DBTX) error {
		_, err := p.results.WithDB(db).InsertTrackingRow(ctx, row)
		return err
	})
	if err != nil {
		err = NewRowError("insert_tracking_row", err)
		log.Error("failed to insert tracking row", "error", err)
		return domain.NewRowError(item, err.Error())
	}
	log = log.With("result_id", row.ResultID)

	if !task.HasID() {
		log.Warn("failed to create task, no task id received")
		return domain.NewRowError(item, domain.MsgFailedToStart)
	}
	log = log.With("task_id", task.TaskID)
	log.Info("task id received, waiting for completion")

	completion, err := p.waiter.Wait(logger.WithLogger(ctx, log), row.ResultID)
	if err != nil {
		err = NewRowError("wait", err)
		log.Error("failed while waiting for completion", "error", err)
		return domain.NewRowError(item, err.Error())
	}

	if !completion.Usable() {
		log.Warn("task did not complete successfully")
		return domain.NewRowError(item, domain.MsgIncomplete)
	}

	log.Info("task completed", "image_url", *completion.ImageURL)
	return domain.NewRowSuccess(item, *completion.ImageURL)
}

func rowOutcome(r domain.RowResult) string {
	if r.Succeeded() {
		return metrics.OutcomeSuccess
	}
	return metrics.OutcomeError
}

// IsRowProcessingError reports whether err came from a pipeline step.
func IsRowProcessingError(err error) bool {
	return errors.Is(err, domain.ErrRowProcessing)
}
