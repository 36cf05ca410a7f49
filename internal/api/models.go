package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/gemini"
)

// BatchRow is one row of a batch request. The unique id is assigned by the
// server from the batch's file id.
type BatchRow struct {
	BrandValue       string `json:"brandValue"`
	SearchValue      string `json:"searchValue" validate:"required"`
	AbsoluteRowIndex int    `json:"absoluteRowIndex" validate:"gte=0"`
}

// BatchRequest defines the payload of the batch endpoints.
type BatchRequest struct {
	// FileID groups the tracking rows of the batch; generated when empty.
	FileID string     `json:"file_id,omitempty" validate:"omitempty,max=255"`
	Rows   []BatchRow `json:"rows" validate:"required,min=1,dive"`
}

// Items converts the rows to submitted items without a unique id.
func (r BatchRequest) Items() []domain.SubmittedItem {
	items := make([]domain.SubmittedItem, len(r.Rows))
	for i, row := range r.Rows {
		items[i] = domain.SubmittedItem{
			BrandValue:       row.BrandValue,
			SearchValue:      row.SearchValue,
			AbsoluteRowIndex: row.AbsoluteRowIndex,
		}
	}
	return items
}

// BatchAcceptedResponse is returned when a batch was queued.
type BatchAcceptedResponse struct {
	Message string    `json:"message"`
	FileID  string    `json:"file_id"`
	JobID   uuid.UUID `json:"job_id"`
}

// BatchResultsResponse carries the per-row outcomes of a synchronous batch.
type BatchResultsResponse struct {
	FileID  string             `json:"file_id"`
	Results []domain.RowResult `json:"results"`
}

// TrackingRowsResponse lists the tracking rows of a file.
type TrackingRowsResponse struct {
	FileID string                `json:"file_id"`
	Rows   []*domain.TrackingRow `json:"rows"`
}

// JobResponse reports the state of a background job.
type JobResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalyzeImageRequest carries a base64 image or data URI.
type AnalyzeImageRequest struct {
	Image string `json:"image" validate:"required"`
}

// AnalyzeImageResponse carries the extracted features of an image.
type AnalyzeImageResponse struct {
	Features *gemini.Features `json:"features"`
}
