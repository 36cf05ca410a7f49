package task

import (
	"context"
	"log/slog"
	"sync"
)

// OverflowWorkers acquire connections on behalf of parked waits. Each
// worker takes the head of the queue, blocks on the carried pool and hands
// the lease to the owner.
type OverflowWorkers struct {
	// queue provides the parked waits
	queue *OverflowQueue

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger
}

// NewOverflowWorkers creates workerCount workers for queue.
func NewOverflowWorkers(queue *OverflowQueue, workerCount int, logger *slog.Logger) *OverflowWorkers {
	if workerCount <= 0 {
		logger.Warn("invalid overflow worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &OverflowWorkers{
		queue:       queue,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the worker goroutines.
func (w *OverflowWorkers) Start() {
	w.logger.Info("starting overflow workers", "worker_count", w.workerCount)

	for i := 0; i < w.workerCount; i++ {
		w.wg.Add(1)
		go w.run(i)
	}
}

// Stop cancels in-flight acquisitions and waits for the workers to exit.
// Waits whose acquisition was cancelled receive the cancellation error.
func (w *OverflowWorkers) Stop() {
	w.logger.Info("stopping overflow workers")
	w.cancel()
	w.wg.Wait()
	w.logger.Info("overflow workers stopped")
}

func (w *OverflowWorkers) run(id int) {
	defer w.wg.Done()

	logger := w.logger.With("worker_id", id)
	logger.Debug("overflow worker started")

	for {
		wait := w.queue.pop()
		if wait == nil {
			select {
			case <-w.ctx.Done():
				logger.Debug("overflow worker stopping")
				return
			case <-w.queue.signal:
				continue
			}
		}

		w.serve(wait, logger)

		if w.ctx.Err() != nil {
			return
		}
	}
}

// serve performs the blocking acquisition for one wait. The acquisition is
// abandoned when either the owner or the workers are cancelled.
func (w *OverflowWorkers) serve(wait *QueuedWait, logger *slog.Logger) {
	stop := context.AfterFunc(w.ctx, wait.cancel)
	defer stop()

	lease, err := wait.Pool.Acquire(wait.ctx)
	if err != nil {
		logger.Debug("overflow acquisition failed",
			"result_id", wait.ResultID,
			"error", err)
	} else {
		logger.Debug("overflow connection handed over", "result_id", wait.ResultID)
	}

	w.queue.deliver(wait, lease, err)
}
