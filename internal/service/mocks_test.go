package service

import (
	"context"
	"sync"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/store"
)

type mockTaskCreator struct {
	CreateFn func(ctx context.Context, item domain.SubmittedItem) (*domain.RemoteTask, error)

	mu    sync.Mutex
	calls int
}

func (m *mockTaskCreator) CreateTask(ctx context.Context, item domain.SubmittedItem) (*domain.RemoteTask, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.CreateFn(ctx, item)
}

func (m *mockTaskCreator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockPool runs fn without a real connection.
type mockPool struct {
	Err error
}

func (m *mockPool) WithConn(ctx context.Context, fn func(db store.DBTX) error) error {
	if m.Err != nil {
		return m.Err
	}
	return fn(nil)
}

type mockResultStore struct {
	InsertFn func(ctx context.Context, row *domain.TrackingRow) (int64, error)
	ListFn   func(ctx context.Context, fileID string) ([]*domain.TrackingRow, error)

	mu       sync.Mutex
	inserted []*domain.TrackingRow
}

func (m *mockResultStore) InsertTrackingRow(ctx context.Context, row *domain.TrackingRow) (int64, error) {
	m.mu.Lock()
	m.inserted = append(m.inserted, row)
	n := int64(len(m.inserted))
	m.mu.Unlock()

	if m.InsertFn != nil {
		return m.InsertFn(ctx, row)
	}
	row.ResultID = n
	return n, nil
}

func (m *mockResultStore) GetCompletionStatus(ctx context.Context, resultID int64) (*domain.TrackingRow, error) {
	return nil, store.ErrNotFound
}

func (m *mockResultStore) ListByFile(ctx context.Context, fileID string) ([]*domain.TrackingRow, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, fileID)
	}
	return nil, nil
}

func (m *mockResultStore) WithDB(db store.DBTX) store.ResultStore {
	return m
}

func (m *mockResultStore) Inserted() []*domain.TrackingRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.TrackingRow(nil), m.inserted...)
}

type mockWaiter struct {
	WaitFn func(ctx context.Context, resultID int64) (domain.Completion, error)

	mu    sync.Mutex
	calls int
}

func (m *mockWaiter) Wait(ctx context.Context, resultID int64) (domain.Completion, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.WaitFn(ctx, resultID)
}

func (m *mockWaiter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func usableCompletion(url string) domain.Completion {
	return domain.Completion{EntryID: intPtr(1), ImageURL: strPtr(url), ImageDesc: strPtr("desc")}
}
