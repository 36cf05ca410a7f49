package task

import (
	"container/list"
	"context"
	"errors"
	"sync"

	"github.com/phrazzld/imagebatch/internal/platform/dbpool"
	"github.com/phrazzld/imagebatch/internal/platform/metrics"
)

// Overflow queue errors
var (
	ErrAlreadyQueued  = errors.New("result already waiting for a connection")
	ErrNotQueued      = errors.New("result is not waiting for a connection")
	ErrOverflowClosed = errors.New("overflow queue is closed")
)

// handoff carries the outcome of a blocking acquisition to the parked wait.
type handoff struct {
	lease *dbpool.Lease
	err   error
}

// QueuedWait is a completion wait parked until a pool slot frees up.
type QueuedWait struct {
	ResultID int64
	Pool     *dbpool.Pool

	ready     chan handoff
	elem      *list.Element
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled bool
}

// OverflowQueue parks completion waits that found the pool exhausted. Waits
// are served FIFO by OverflowWorkers; each owner blocks only on its own
// key, so no entry is ever rotated or re-examined by another wait.
type OverflowQueue struct {
	mu     sync.Mutex
	waits  *list.List
	byID   map[int64]*QueuedWait
	signal chan struct{}
	closed bool
}

// NewOverflowQueue creates an empty queue.
func NewOverflowQueue() *OverflowQueue {
	return &OverflowQueue{
		waits:  list.New(),
		byID:   make(map[int64]*QueuedWait),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue parks resultID at the tail of the queue. The carried pool is the
// one an overflow worker will block on.
func (q *OverflowQueue) Enqueue(resultID int64, pool *dbpool.Pool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrOverflowClosed
	}
	if _, ok := q.byID[resultID]; ok {
		return ErrAlreadyQueued
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &QueuedWait{
		ResultID: resultID,
		Pool:     pool,
		ready:    make(chan handoff, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	w.elem = q.waits.PushBack(w)
	q.byID[resultID] = w
	q.updateDepth()
	q.notify()
	return nil
}

// WaitFor blocks until a lease for resultID is handed over or ctx is done.
// A lease delivered before WaitFor is called stays buffered for it; the key
// is freed only once the owner has taken the hand-off. On cancellation the
// wait is removed and a lease delivered concurrently is released.
func (q *OverflowQueue) WaitFor(ctx context.Context, resultID int64) (*dbpool.Lease, error) {
	q.mu.Lock()
	w, ok := q.byID[resultID]
	q.mu.Unlock()
	if !ok {
		return nil, ErrNotQueued
	}

	select {
	case h := <-w.ready:
		q.mu.Lock()
		q.removeLocked(w)
		q.mu.Unlock()
		w.cancel()
		return h.lease, h.err
	case <-ctx.Done():
	}

	q.mu.Lock()
	w.cancelled = true
	q.removeLocked(w)
	q.mu.Unlock()
	w.cancel()

	select {
	case h := <-w.ready:
		if h.lease != nil {
			h.lease.Release()
		}
	default:
	}
	return nil, ctx.Err()
}

// Len returns the number of waits not yet picked up by a worker.
func (q *OverflowQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waits.Len()
}

// Close fails every parked wait with ErrOverflowClosed and rejects new ones.
// Waits already picked up by a worker are still delivered.
func (q *OverflowQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	for e := q.waits.Front(); e != nil; {
		next := e.Next()
		w := e.Value.(*QueuedWait)
		q.waits.Remove(e)
		w.elem = nil
		w.ready <- handoff{err: ErrOverflowClosed}
		e = next
	}
	q.updateDepth()
}

// pop removes the head wait. It stays registered by key until delivered.
func (q *OverflowQueue) pop() *QueuedWait {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.waits.Front()
	if e == nil {
		return nil
	}
	w := q.waits.Remove(e).(*QueuedWait)
	w.elem = nil
	q.updateDepth()

	if q.waits.Len() > 0 {
		q.notify()
	}
	return w
}

// deliver hands the acquisition outcome to the owner, or releases the lease
// if the owner has already given up. The key stays registered until the
// owner collects the outcome in WaitFor.
func (q *OverflowQueue) deliver(w *QueuedWait, lease *dbpool.Lease, err error) {
	q.mu.Lock()
	if w.cancelled {
		q.mu.Unlock()
		if lease != nil {
			lease.Release()
		}
		return
	}
	w.ready <- handoff{lease: lease, err: err}
	q.mu.Unlock()
}

func (q *OverflowQueue) removeLocked(w *QueuedWait) {
	if w.elem != nil {
		q.waits.Remove(w.elem)
		w.elem = nil
		q.updateDepth()
	}
	if q.byID[w.ResultID] == w {
		delete(q.byID, w.ResultID)
	}
}

// notify wakes one idle worker without blocking.
func (q *OverflowQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *OverflowQueue) updateDepth() {
	metrics.GaugeOverflowDepth.Set(float64(q.waits.Len()))
}
