package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/logger"
	"github.com/phrazzld/imagebatch/internal/platform/sqldb"
	"github.com/phrazzld/imagebatch/internal/store"
)

const (
	insertColumns = "INSERT INTO utb_ImageScraperResult (EntryID, FileID, SearchValue)"

	completionQuery = "SELECT completeTime, EntryID, ImageUrl, ImageDesc FROM utb_ImageScraperResult WHERE ResultID = ?"

	listByFileQuery = `SELECT ResultID, EntryID, FileID, SearchValue, completeTime, ImageUrl, ImageDesc
		FROM utb_ImageScraperResult
		WHERE FileID = ?
		ORDER BY EntryID, ResultID`
)

// ResultStore implements store.ResultStore for the tracking table.
type ResultStore struct {
	db      store.DBTX
	dialect sqldb.Dialect
}

// NewResultStore creates a ResultStore that runs its statements on db.
func NewResultStore(db store.DBTX, dialect sqldb.Dialect) *ResultStore {
	return &ResultStore{
		db:      db,
		dialect: dialect,
	}
}

// Ensure ResultStore implements store.ResultStore interface
var _ store.ResultStore = (*ResultStore)(nil)

// WithDB returns a new ResultStore bound to db, typically a leased
// connection or a transaction.
func (s *ResultStore) WithDB(db store.DBTX) store.ResultStore {
	return &ResultStore{
		db:      db,
		dialect: s.dialect,
	}
}

// InsertTrackingRow inserts a new row with empty completion columns and
// returns the generated ResultID. The row is also updated in place.
func (s *ResultStore) InsertTrackingRow(ctx context.Context, row *domain.TrackingRow) (int64, error) {
	log := logger.FromContext(ctx)

	if row == nil {
		return 0, fmt.Errorf("%w: tracking row is nil", store.ErrInvalidEntity)
	}
	if row.FileID == "" {
		return 0, fmt.Errorf("%w: file id cannot be empty", store.ErrInvalidEntity)
	}

	args := []any{row.EntryID, row.FileID, row.SearchValue}

	var (
		id  int64
		err error
	)
	switch s.dialect {
	case sqldb.SQLServer:
		query := insertColumns + " OUTPUT INSERTED.ResultID VALUES (?, ?, ?)"
		err = s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...).Scan(&id)
	case sqldb.MySQL:
		var res sql.Result
		res, err = s.db.ExecContext(ctx, insertColumns+" VALUES (?, ?, ?)", args...)
		if err == nil {
			id, err = res.LastInsertId()
		}
	default:
		query := insertColumns + " VALUES (?, ?, ?) RETURNING ResultID"
		err = s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...).Scan(&id)
	}

	if err != nil {
		log.Error("failed to insert tracking row",
			"error", err,
			"file_id", row.FileID,
			"entry_id", row.EntryID)
		return 0, store.NewStoreError("tracking_row", "insert", "failed to insert tracking row", MapError(err))
	}

	row.ResultID = id
	log.Debug("tracking row inserted",
		"result_id", id,
		"file_id", row.FileID,
		"entry_id", row.EntryID)
	return id, nil
}

// GetCompletionStatus reads the completion columns of one row.
func (s *ResultStore) GetCompletionStatus(ctx context.Context, resultID int64) (*domain.TrackingRow, error) {
	var (
		completeTime nullTime
		entryID      sql.NullInt64
		imageURL     sql.NullString
		imageDesc    sql.NullString
	)

	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(completionQuery), resultID).
		Scan(&completeTime, &entryID, &imageURL, &imageDesc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTrackingRowNotFound
		}
		logger.FromContext(ctx).Error("failed to read completion status",
			"error", err,
			"result_id", resultID)
		return nil, store.NewStoreError("tracking_row", "read", "failed to read completion status", MapError(err))
	}

	return &domain.TrackingRow{
		ResultID:     resultID,
		EntryID:      int(entryID.Int64),
		CompleteTime: completeTime.Ptr(),
		ImageURL:     stringPtr(imageURL),
		ImageDesc:    stringPtr(imageDesc),
	}, nil
}

// ListByFile returns every tracking row inserted for fileID.
func (s *ResultStore) ListByFile(ctx context.Context, fileID string) ([]*domain.TrackingRow, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(listByFileQuery), fileID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list tracking rows",
			"error", err,
			"file_id", fileID)
		return nil, store.NewStoreError("tracking_row", "list", "failed to list tracking rows", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var result []*domain.TrackingRow
	for rows.Next() {
		var (
			row          domain.TrackingRow
			completeTime nullTime
			imageURL     sql.NullString
			imageDesc    sql.NullString
		)
		if err := rows.Scan(
			&row.ResultID,
			&row.EntryID,
			&row.FileID,
			&row.SearchValue,
			&completeTime,
			&imageURL,
			&imageDesc,
		); err != nil {
			return nil, store.NewStoreError("tracking_row", "list", "failed to scan tracking row", MapError(err))
		}
		row.CompleteTime = completeTime.Ptr()
		row.ImageURL = stringPtr(imageURL)
		row.ImageDesc = stringPtr(imageDesc)
		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("tracking_row", "list", "failed to iterate tracking rows", MapError(err))
	}

	return result, nil
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
