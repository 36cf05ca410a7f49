package task

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/dbpool"
	"github.com/phrazzld/imagebatch/internal/platform/sqlstore"
	"github.com/phrazzld/imagebatch/internal/testdb"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// waitFixture wires a pool of the given size, an overflow queue with its
// workers and a result store over a fresh database.
type waitFixture struct {
	db       *testdb.DB
	writer   *testdb.DB
	pool     *dbpool.Pool
	overflow *OverflowQueue
	results  *sqlstore.ResultStore
}

func newWaitFixture(t *testing.T, poolSize, workers int) *waitFixture {
	t.Helper()

	db := testdb.OpenWithPoolSize(t, poolSize)
	pool := dbpool.New(db.DB, poolSize)
	overflow := NewOverflowQueue()
	ow := NewOverflowWorkers(overflow, workers, setupTestLogger())
	ow.Start()

	t.Cleanup(func() {
		ow.Stop()
		overflow.Close()
		_ = pool.Close()
	})

	return &waitFixture{
		db:       db,
		writer:   db.Writer(t),
		pool:     pool,
		overflow: overflow,
		results:  sqlstore.NewResultStore(db.DB, db.Dialect),
	}
}

// insertRow adds a pending tracking row through the writer handle so the
// pool under test is left untouched.
func (f *waitFixture) insertRow(t *testing.T, entryID int) int64 {
	t.Helper()

	s := sqlstore.NewResultStore(f.writer.DB, f.writer.Dialect)
	id, err := s.InsertTrackingRow(context.Background(), &domain.TrackingRow{
		EntryID:     entryID,
		FileID:      "F-test",
		SearchValue: "red shoes",
	})
	require.NoError(t, err)
	return id
}

// stubTask is a Task whose Execute runs the replaceable run function.
type stubTask struct {
	id      uuid.UUID
	payload []byte
	run     func(ctx context.Context) error
}

func newStubTask(fileID string) *stubTask {
	payload, _ := json.Marshal(map[string]string{"file_id": fileID})
	return &stubTask{
		id:      uuid.New(),
		payload: payload,
		run:     func(ctx context.Context) error { return nil },
	}
}

func (t *stubTask) ID() uuid.UUID                     { return t.id }
func (t *stubTask) Type() string                      { return TaskTypeImageBatch }
func (t *stubTask) Payload() []byte                   { return t.payload }
func (t *stubTask) Status() TaskStatus                { return TaskStatusPending }
func (t *stubTask) Execute(ctx context.Context) error { return t.run(ctx) }
