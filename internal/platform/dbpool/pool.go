package dbpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/phrazzld/imagebatch/internal/platform/metrics"
	"github.com/phrazzld/imagebatch/internal/store"
)

var (
	// ErrPoolExhausted is returned by TryAcquire when no slot is free.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrPoolClosed is returned by every acquisition after Close.
	ErrPoolClosed = errors.New("connection pool closed")
)

// Pool hands out exclusive database connections up to a fixed size.
type Pool struct {
	db   *sql.DB
	sem  *semaphore.Weighted
	size int

	inUse    atomic.Int64
	closed   atomic.Bool
	closeCh  chan struct{}
	closeErr error
	once     sync.Once
}

// New creates a Pool of size slots over db. The pool takes ownership of db
// and closes it in Close.
func New(db *sql.DB, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	db.SetMaxOpenConns(size)

	return &Pool{
		db:      db,
		sem:     semaphore.NewWeighted(int64(size)),
		size:    size,
		closeCh: make(chan struct{}),
	}
}

// TryAcquire leases a connection without waiting for a free slot.
func (p *Pool) TryAcquire(ctx context.Context) (*Lease, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	if !p.sem.TryAcquire(1) {
		return nil, ErrPoolExhausted
	}
	return p.lease(ctx)
}

// Acquire leases a connection, waiting until a slot frees up, ctx is done
// or the pool is closed. Waiters are served in FIFO order.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	acquireCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-p.closeCh:
			cancel()
		case <-acquireCtx.Done():
		}
	}()

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if p.closed.Load() {
			return nil, ErrPoolClosed
		}
		return nil, err
	}
	return p.lease(ctx)
}

// lease turns an acquired slot into a Lease. The slot is returned if no
// connection can be obtained.
func (p *Pool) lease(ctx context.Context) (*Lease, error) {
	if p.closed.Load() {
		p.sem.Release(1)
		return nil, ErrPoolClosed
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("failed to obtain database connection: %w", err)
	}

	p.inUse.Add(1)
	metrics.GaugePoolInUse.Inc()
	return &Lease{pool: p, conn: conn}, nil
}

// WithConn runs fn on a leased connection, waiting for a slot if needed.
func (p *Pool) WithConn(ctx context.Context, fn func(db store.DBTX) error) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	return fn(lease.Conn())
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// InUse returns the number of outstanding leases.
func (p *Pool) InUse() int {
	return int(p.inUse.Load())
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Close wakes blocked Acquire callers with ErrPoolClosed and closes the
// underlying database. Outstanding leases stay usable until released.
func (p *Pool) Close() error {
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.closeCh)
		p.closeErr = p.db.Close()
	})
	return p.closeErr
}

// Lease is an exclusive hold on one pooled connection.
type Lease struct {
	pool *Pool
	conn *sql.Conn
	once sync.Once
}

// Conn returns the leased connection.
func (l *Lease) Conn() *sql.Conn {
	return l.conn
}

// Release returns the connection to the pool. It is safe to call more
// than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		_ = l.conn.Close()
		l.pool.inUse.Add(-1)
		metrics.GaugePoolInUse.Dec()
		l.pool.sem.Release(1)
	})
}
