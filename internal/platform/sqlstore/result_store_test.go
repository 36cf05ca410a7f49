package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/sqlstore"
	"github.com/phrazzld/imagebatch/internal/store"
	"github.com/phrazzld/imagebatch/internal/testdb"
)

func newStore(t *testing.T) (*sqlstore.ResultStore, *testdb.DB) {
	t.Helper()
	db := testdb.Open(t)
	return sqlstore.NewResultStore(db, db.Dialect), db
}

func TestInsertTrackingRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, db := newStore(t)

	row := &domain.TrackingRow{EntryID: 5, FileID: "F1", SearchValue: "red shoes"}
	id, err := s.InsertTrackingRow(ctx, row)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, row.ResultID)

	second, err := s.InsertTrackingRow(ctx, &domain.TrackingRow{EntryID: 6, FileID: "F1", SearchValue: "blue shoes"})
	require.NoError(t, err)
	assert.NotEqual(t, id, second, "generated ids must be distinct")

	assert.Equal(t, 2, testdb.CountRows(t, db, "F1"))
}

func TestInsertTrackingRow_Invalid(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t)

	_, err := s.InsertTrackingRow(context.Background(), nil)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	_, err = s.InsertTrackingRow(context.Background(), &domain.TrackingRow{EntryID: 1, SearchValue: "x"})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestGetCompletionStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, db := newStore(t)

	id, err := s.InsertTrackingRow(ctx, &domain.TrackingRow{EntryID: 5, FileID: "F1", SearchValue: "Nike"})
	require.NoError(t, err)

	t.Run("pending row", func(t *testing.T) {
		row, err := s.GetCompletionStatus(ctx, id)
		require.NoError(t, err)
		assert.False(t, row.IsComplete())
		assert.Equal(t, 5, row.EntryID)
		assert.Nil(t, row.ImageURL)
		assert.Nil(t, row.ImageDesc)
	})

	t.Run("completed row", func(t *testing.T) {
		testdb.MarkComplete(t, db, id, "https://img.example/x.jpg", "a red shoe")

		row, err := s.GetCompletionStatus(ctx, id)
		require.NoError(t, err)
		require.True(t, row.IsComplete())
		require.NotNil(t, row.ImageURL)
		assert.Equal(t, "https://img.example/x.jpg", *row.ImageURL)
		require.NotNil(t, row.ImageDesc)
		assert.Equal(t, "a red shoe", *row.ImageDesc)

		completion := row.Completion()
		assert.True(t, completion.Usable())
		assert.Equal(t, 5, *completion.EntryID)
	})

	t.Run("completed by a database timestamp", func(t *testing.T) {
		textID, err := s.InsertTrackingRow(ctx, &domain.TrackingRow{EntryID: 6, FileID: "F1", SearchValue: "Adidas"})
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, db.Dialect.Rebind(
			"UPDATE utb_ImageScraperResult SET completeTime = CURRENT_TIMESTAMP WHERE ResultID = ?"), textID)
		require.NoError(t, err)

		row, err := s.GetCompletionStatus(ctx, textID)
		require.NoError(t, err)
		require.True(t, row.IsComplete())
		assert.WithinDuration(t, time.Now().UTC(), row.CompleteTime.UTC(), time.Hour)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := s.GetCompletionStatus(ctx, id+1000)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})
}

func TestListByFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, db := newStore(t)

	for _, entry := range []int{3, 1, 2} {
		_, err := s.InsertTrackingRow(ctx, &domain.TrackingRow{EntryID: entry, FileID: "F2", SearchValue: "v"})
		require.NoError(t, err)
	}
	other, err := s.InsertTrackingRow(ctx, &domain.TrackingRow{EntryID: 9, FileID: "OTHER", SearchValue: "v"})
	require.NoError(t, err)
	testdb.MarkComplete(t, db, other, "u", "d")

	rows, err := s.ListByFile(ctx, "F2")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i+1, row.EntryID)
		assert.Equal(t, "F2", row.FileID)
		assert.False(t, row.IsComplete())
	}

	none, err := s.ListByFile(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWithDB(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, db := newStore(t)

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	bound := s.WithDB(conn)
	id, err := bound.InsertTrackingRow(ctx, &domain.TrackingRow{EntryID: 1, FileID: "F3", SearchValue: "v"})
	require.NoError(t, err)

	row, err := s.GetCompletionStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, row.EntryID)
}
