package dbpool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/imagebatch/internal/platform/dbpool"
	"github.com/phrazzld/imagebatch/internal/store"
	"github.com/phrazzld/imagebatch/internal/testdb"
)

func newPool(t *testing.T, size int) *dbpool.Pool {
	t.Helper()
	db := testdb.OpenWithPoolSize(t, size)
	pool := dbpool.New(db.DB, size)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestTryAcquire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pool := newPool(t, 2)

	first, err := pool.TryAcquire(ctx)
	require.NoError(t, err)
	second, err := pool.TryAcquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pool.InUse())

	_, err = pool.TryAcquire(ctx)
	assert.ErrorIs(t, err, dbpool.ErrPoolExhausted)

	first.Release()
	first.Release() // second release is a no-op
	assert.Equal(t, 1, pool.InUse())

	third, err := pool.TryAcquire(ctx)
	require.NoError(t, err)

	second.Release()
	third.Release()
	assert.Equal(t, 0, pool.InUse())
}

func TestLeaseConnIsUsable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pool := newPool(t, 1)

	lease, err := pool.TryAcquire(ctx)
	require.NoError(t, err)
	defer lease.Release()

	var one int
	require.NoError(t, lease.Conn().QueryRowContext(ctx, "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestAcquireWaitsForRelease(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pool := newPool(t, 1)

	held, err := pool.TryAcquire(ctx)
	require.NoError(t, err)

	acquired := make(chan *dbpool.Lease, 1)
	go func() {
		lease, err := pool.Acquire(ctx)
		if err != nil {
			t.Errorf("Acquire failed: %v", err)
			close(acquired)
			return
		}
		acquired <- lease
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned while the only slot was held")
	case <-time.After(50 * time.Millisecond):
	}

	held.Release()

	select {
	case lease := <-acquired:
		require.NotNil(t, lease)
		lease.Release()
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not return after release")
	}
}

func TestAcquireContextCancelled(t *testing.T) {
	t.Parallel()
	pool := newPool(t, 1)

	held, err := pool.TryAcquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, pool.InUse())
}

func TestCloseWakesWaiters(t *testing.T) {
	t.Parallel()
	db := testdb.OpenWithPoolSize(t, 1)
	pool := dbpool.New(db.DB, 1)

	held, err := pool.TryAcquire(context.Background())
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(context.Background())
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	held.Release()
	_ = pool.Close()

	select {
	case err := <-errCh:
		// The waiter either raced the release or was woken by Close.
		if err != nil {
			assert.ErrorIs(t, err, dbpool.ErrPoolClosed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released by Close")
	}

	_, err = pool.TryAcquire(context.Background())
	assert.ErrorIs(t, err, dbpool.ErrPoolClosed)
	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, dbpool.ErrPoolClosed)
	assert.True(t, pool.Closed())
	assert.NoError(t, pool.Close(), "Close is idempotent")
}

func TestWithConn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pool := newPool(t, 2)

	var one int
	err := pool.WithConn(ctx, func(db store.DBTX) error {
		assert.Equal(t, 1, pool.InUse())
		return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, one)
	assert.Equal(t, 0, pool.InUse())

	sentinel := errors.New("fn failed")
	err = pool.WithConn(ctx, func(store.DBTX) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, pool.InUse())
}

func TestConcurrentLeasesNeverExceedSize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pool := newPool(t, 3)

	var (
		mu      sync.Mutex
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.WithConn(ctx, func(store.DBTX) error {
				mu.Lock()
				if n := pool.InUse(); n > maxSeen {
					maxSeen = n
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen, 3)
	assert.Equal(t, 0, pool.InUse())
	assert.Equal(t, 3, pool.Size())
}
