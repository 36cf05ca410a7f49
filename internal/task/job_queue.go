package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrQueueClosed is returned by Submit once the runner has stopped.
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrQueueFull is returned by Submit when every queue slot is taken.
	// Jobs are never blocked on submission.
	ErrQueueFull = errors.New("job queue is full")
)

// jobQueue is the bounded in-memory buffer between Submit and the workers.
type jobQueue struct {
	mu     sync.Mutex
	ch     chan Task
	closed bool
	logger *slog.Logger
}

func newJobQueue(size int, logger *slog.Logger) *jobQueue {
	if size <= 0 {
		size = 1
	}
	return &jobQueue{ch: make(chan Task, size), logger: logger}
}

// push adds t without blocking.
func (q *jobQueue) push(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- t:
		q.logger.Debug("job queued",
			"job_id", t.ID(),
			"job_type", t.Type(),
			"queued", len(q.ch),
			"capacity", cap(q.ch))
		return nil
	default:
		return fmt.Errorf("%w: %d jobs waiting", ErrQueueFull, cap(q.ch))
	}
}

// jobs is drained by the workers. It is closed by close.
func (q *jobQueue) jobs() <-chan Task {
	return q.ch
}

func (q *jobQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
	q.logger.Info("job queue closed")
}

func (q *jobQueue) len() int {
	return len(q.ch)
}
