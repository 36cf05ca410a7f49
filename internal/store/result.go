package store

import (
	"context"

	"github.com/phrazzld/imagebatch/internal/domain"
)

// ResultStore persists tracking rows in the shared result table. Rows are
// inserted by the pipeline and completed by an external writer.
type ResultStore interface {
	// InsertTrackingRow stores a new tracking row and returns the
	// datastore-generated result ID.
	InsertTrackingRow(ctx context.Context, row *domain.TrackingRow) (int64, error)

	// GetCompletionStatus reads the completion columns of a row.
	// Returns ErrNotFound if the row does not exist.
	GetCompletionStatus(ctx context.Context, resultID int64) (*domain.TrackingRow, error)

	// ListByFile returns every tracking row of a batch, ordered by entry.
	ListByFile(ctx context.Context, fileID string) ([]*domain.TrackingRow, error)

	// WithDB returns a ResultStore bound to db, typically a leased
	// connection from the shared pool.
	WithDB(db DBTX) ResultStore
}
