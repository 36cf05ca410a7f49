package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/dbpool"
	"github.com/phrazzld/imagebatch/internal/platform/logger"
	"github.com/phrazzld/imagebatch/internal/platform/metrics"
	"github.com/phrazzld/imagebatch/internal/store"
)

// Default waiter timings.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultWaitDeadline = 1800 * time.Second
)

// WaiterConfig configures a CompletionWaiter.
type WaiterConfig struct {
	// PollInterval is the sleep between two reads of the tracking row.
	PollInterval time.Duration

	// Deadline bounds the whole wait. Reaching it abandons the wait.
	Deadline time.Duration
}

// DefaultWaiterConfig returns the production timings.
func DefaultWaiterConfig() WaiterConfig {
	return WaiterConfig{
		PollInterval: DefaultPollInterval,
		Deadline:     DefaultWaitDeadline,
	}
}

// CompletionWaiter polls a tracking row until the external writer sets its
// completion time. Each read holds a pool lease for a single statement;
// when the pool is exhausted the read is routed through the overflow queue.
type CompletionWaiter struct {
	pool     *dbpool.Pool
	overflow *OverflowQueue
	results  store.ResultStore
	config   WaiterConfig
	logger   *slog.Logger
}

// NewCompletionWaiter creates a waiter reading through pool. A nil overflow
// queue makes exhausted reads block on the pool directly.
func NewCompletionWaiter(
	pool *dbpool.Pool,
	overflow *OverflowQueue,
	results store.ResultStore,
	config WaiterConfig,
	logger *slog.Logger,
) *CompletionWaiter {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Deadline <= 0 {
		config.Deadline = DefaultWaitDeadline
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CompletionWaiter{
		pool:     pool,
		overflow: overflow,
		results:  results,
		config:   config,
		logger:   logger,
	}
}

// Wait blocks until the row identified by resultID is complete or the
// deadline passes. An expired deadline yields the abandoned completion and
// a nil error; cancellation of ctx yields ctx's error.
func (w *CompletionWaiter) Wait(ctx context.Context, resultID int64) (domain.Completion, error) {
	log := logger.FromContextOr(ctx, w.logger).With("result_id", resultID)
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, w.config.Deadline)
	defer cancel()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	polls := 0
	for {
		polls++
		row, err := w.read(waitCtx, resultID)
		if err != nil {
			if waitCtx.Err() != nil {
				return w.expired(ctx, log, start, polls)
			}
			log.Error("failed to read completion status", "error", err, "polls", polls)
			return domain.Completion{}, err
		}

		if row.IsComplete() {
			metrics.HistogramWaitDuration.Observe(time.Since(start).Seconds())
			log.Debug("tracking row complete",
				"polls", polls,
				"duration_ms", time.Since(start).Milliseconds())
			return row.Completion(), nil
		}

		timer.Reset(w.config.PollInterval)
		select {
		case <-waitCtx.Done():
			return w.expired(ctx, log, start, polls)
		case <-timer.C:
		}
	}
}

// expired distinguishes cancellation by the caller from the wait deadline.
func (w *CompletionWaiter) expired(ctx context.Context, log *slog.Logger, start time.Time, polls int) (domain.Completion, error) {
	if err := ctx.Err(); err != nil {
		log.Debug("completion wait cancelled", "error", err, "polls", polls)
		return domain.Completion{}, err
	}

	metrics.CounterWaitsAbandoned.Inc()
	metrics.HistogramWaitDuration.Observe(time.Since(start).Seconds())
	log.Warn("completion wait abandoned",
		"polls", polls,
		"deadline", w.config.Deadline.String())
	return domain.Completion{}, nil
}

// read performs one completion read on a leased connection. A missing row
// reads as not complete.
func (w *CompletionWaiter) read(ctx context.Context, resultID int64) (*domain.TrackingRow, error) {
	lease, err := w.lease(ctx, resultID)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	row, err := w.results.WithDB(lease.Conn()).GetCompletionStatus(ctx, resultID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return &domain.TrackingRow{ResultID: resultID}, nil
		}
		return nil, err
	}
	return row, nil
}

// lease tries the pool first and falls back to the overflow queue, or to a
// blocking acquisition when the waiter has no queue.
func (w *CompletionWaiter) lease(ctx context.Context, resultID int64) (*dbpool.Lease, error) {
	lease, err := w.pool.TryAcquire(ctx)
	if err == nil {
		return lease, nil
	}
	if !errors.Is(err, dbpool.ErrPoolExhausted) {
		return nil, err
	}

	metrics.CounterPoolExhausted.Inc()
	logger.FromContextOr(ctx, w.logger).Debug("connection pool exhausted, parking wait",
		"result_id", resultID)

	if w.overflow == nil {
		return w.pool.Acquire(ctx)
	}
	if err := w.overflow.Enqueue(resultID, w.pool); err != nil {
		return nil, fmt.Errorf("failed to park wait: %w", err)
	}
	return w.overflow.WaitFor(ctx, resultID)
}
