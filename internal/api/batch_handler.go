package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phrazzld/imagebatch/internal/api/shared"
	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/logger"
	"github.com/phrazzld/imagebatch/internal/service"
	"github.com/phrazzld/imagebatch/internal/task"
)

// MsgProcessingStarted is the message of an accepted batch.
const MsgProcessingStarted = "Processing started successfully"

// BatchService is the part of service.BatchService used by the handlers.
type BatchService interface {
	ProcessBatch(ctx context.Context, items []domain.SubmittedItem) []domain.RowResult
	SubmitBatch(ctx context.Context, fileID string, items []domain.SubmittedItem) (uuid.UUID, error)
	JobState(id uuid.UUID) (task.JobState, error)
	ListResults(ctx context.Context, fileID string) ([]*domain.TrackingRow, error)
}

// BatchHandler handles batch and job HTTP requests.
type BatchHandler struct {
	batches BatchService
	logger  *slog.Logger
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batches BatchService, logger *slog.Logger) *BatchHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BatchHandler")
	}
	return &BatchHandler{
		batches: batches,
		logger:  logger.With(slog.String("component", "batch_handler")),
	}
}

// decodeBatch decodes, validates and prepares the items of a batch request.
// It writes the error response itself and reports whether to continue.
func (h *BatchHandler) decodeBatch(w http.ResponseWriter, r *http.Request) (string, []domain.SubmittedItem, bool) {
	var req BatchRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return "", nil, false
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return "", nil, false
	}

	fileID, items, err := service.PrepareItems(req.FileID, req.Items())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return "", nil, false
	}
	return fileID, items, true
}

// CreateBatch handles POST /batches. The batch runs as a background job.
func (h *BatchHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOr(r.Context(), h.logger)

	fileID, items, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}

	jobID, err := h.batches.SubmitBatch(r.Context(), fileID, items)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start processing")
		return
	}

	log.Info("batch accepted", "file_id", fileID, "job_id", jobID, "rows", len(items))
	shared.RespondWithJSON(w, r, http.StatusAccepted, BatchAcceptedResponse{
		Message: MsgProcessingStarted,
		FileID:  fileID,
		JobID:   jobID,
	})
}

// ProcessBatchSync handles POST /batches/sync. The response is written once
// every row has finished.
func (h *BatchHandler) ProcessBatchSync(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOr(r.Context(), h.logger)

	fileID, items, ok := h.decodeBatch(w, r)
	if !ok {
		return
	}

	log.Info("processing batch inline", "file_id", fileID, "rows", len(items))
	results := h.batches.ProcessBatch(r.Context(), items)

	shared.RespondWithJSON(w, r, http.StatusOK, BatchResultsResponse{
		FileID:  fileID,
		Results: results,
	})
}

// ListResults handles GET /batches/{fileID}/results.
func (h *BatchHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	fileID, err := getPathString(r, "fileID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rows, err := h.batches.ListResults(r.Context(), fileID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list results")
		return
	}
	if rows == nil {
		rows = []*domain.TrackingRow{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TrackingRowsResponse{FileID: fileID, Rows: rows})
}

// GetJob handles GET /jobs/{jobID}.
func (h *BatchHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := getPathUUID(r, "jobID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	state, err := h.batches.JobState(jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, JobResponse{
		ID:        state.ID,
		Type:      state.Type,
		Status:    string(state.Status),
		Error:     state.Error,
		UpdatedAt: state.UpdatedAt,
	})
}
