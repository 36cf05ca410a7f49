package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// WorkerCount is the number of jobs run at once.
	WorkerCount int

	// QueueSize bounds the jobs waiting for a worker.
	QueueSize int
}

// DefaultRunnerConfig matches the batch defaults of the configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// Runner manages background task processing. Tasks live in memory only;
// a process restart drops queued work.
type Runner struct {
	queue      *jobQueue
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	mu     sync.RWMutex
	states map[uuid.UUID]*JobState
}

// NewRunner creates a Runner. Call Start before submitting work that must
// run.
func NewRunner(config RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if config.WorkerCount <= 0 {
		logger.Warn("worker count must be positive, running one worker",
			"worker_count", config.WorkerCount)
		config.WorkerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		queue:      newJobQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		states:     make(map[uuid.UUID]*JobState),
		errHandler: func(task Task, err error) {
			logger.Error("job failed",
				"job_id", task.ID(),
				"job_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler replaces the callback invoked after a job fails.
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit queues task and records it as pending. It fails fast with
// ErrQueueFull instead of blocking.
func (r *Runner) Submit(ctx context.Context, task Task) error {
	r.setState(task, TaskStatusPending, "")

	if err := r.queue.push(task); err != nil {
		r.mu.Lock()
		delete(r.states, task.ID())
		r.mu.Unlock()
		return fmt.Errorf("failed to submit job: %w", err)
	}
	return nil
}

// Start launches the workers.
func (r *Runner) Start() error {
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.logger.Info("job runner started", "worker_count", r.config.WorkerCount)
	return nil
}

// Stop gracefully shuts down the task runner. Tasks still in the queue are
// dropped; running tasks see their context cancelled.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.queue.close()
	r.wg.Wait()
	r.logger.Info("job runner stopped")
}

// State returns the last known state of a submitted task.
func (r *Runner) State(id uuid.UUID) (JobState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.states[id]
	if !ok {
		return JobState{}, false
	}
	return *state, true
}

// QueueLen returns the number of tasks waiting for a worker.
func (r *Runner) QueueLen() int {
	return r.queue.len()
}

func (r *Runner) setState(task Task, status TaskStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[task.ID()] = &JobState{
		ID:        task.ID(),
		Type:      task.Type(),
		Status:    status,
		Error:     errMsg,
		UpdatedAt: time.Now().UTC(),
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return

		case task, ok := <-r.queue.jobs():
			if !ok {
				return
			}

			r.processTask(task, id)
		}
	}
}

func (r *Runner) processTask(task Task, workerID int) {
	logger := r.logger.With(
		"job_id", task.ID(),
		"job_type", task.Type(),
		"worker_id", workerID,
	)

	r.setState(task, TaskStatusProcessing, "")
	logger.Info("job started")

	err := r.execute(task)
	if err != nil {
		logger.Error("job failed", "error", err)
		r.setState(task, TaskStatusFailed, err.Error())
		r.errHandler(task, err)
		return
	}

	logger.Info("job completed")
	r.setState(task, TaskStatusCompleted, "")
}

// execute runs the task and reports a panic as an error.
func (r *Runner) execute(task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
		}
	}()
	return task.Execute(r.ctx)
}
