package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// MarkComplete plays the external writer: it fills the completion columns
// of a tracking row.
func MarkComplete(t *testing.T, db *DB, resultID int64, imageURL, imageDesc string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	query := db.Dialect.Rebind(
		"UPDATE utb_ImageScraperResult SET completeTime = ?, ImageUrl = ?, ImageDesc = ? WHERE ResultID = ?",
	)
	res, err := db.ExecContext(ctx, query, time.Now().UTC(), imageURL, imageDesc, resultID)
	require.NoError(t, err, "failed to complete tracking row")

	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), n, "tracking row %d not found", resultID)
}

// MarkCompleteAfter completes the row from a goroutine after delay. The
// returned channel is closed once the update ran.
func MarkCompleteAfter(t *testing.T, db *DB, delay time.Duration, resultID int64, imageURL, imageDesc string) <-chan struct{} {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
		defer cancel()

		query := db.Dialect.Rebind(
			"UPDATE utb_ImageScraperResult SET completeTime = ?, ImageUrl = ?, ImageDesc = ? WHERE ResultID = ?",
		)
		if _, err := db.ExecContext(ctx, query, time.Now().UTC(), imageURL, imageDesc, resultID); err != nil {
			t.Errorf("failed to complete tracking row %d: %v", resultID, err)
		}
	}()
	return done
}

// CountRows returns the number of tracking rows for fileID.
func CountRows(t *testing.T, db *DB, fileID string) int {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	var n int
	err := db.QueryRowContext(ctx,
		db.Dialect.Rebind("SELECT COUNT(*) FROM utb_ImageScraperResult WHERE FileID = ?"),
		fileID,
	).Scan(&n)
	require.NoError(t, err)
	return n
}
