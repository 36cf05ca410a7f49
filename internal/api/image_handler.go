package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/imagebatch/internal/api/shared"
	"github.com/phrazzld/imagebatch/internal/platform/gemini"
)

// ImageAnalyzer extracts features from a base64 image.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, image string) (*gemini.Features, error)
}

// ImageHandler handles image analysis requests.
type ImageHandler struct {
	analyzer ImageAnalyzer
	logger   *slog.Logger
}

// NewImageHandler creates an ImageHandler. A nil analyzer answers every
// request with 503.
func NewImageHandler(analyzer ImageAnalyzer, logger *slog.Logger) *ImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageHandler{
		analyzer: analyzer,
		logger:   logger.With(slog.String("component", "image_handler")),
	}
}

// Analyze handles POST /images/analyze.
func (h *ImageHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Image analysis is not configured")
		return
	}

	var req AnalyzeImageRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	features, err := h.analyzer.Analyze(r.Context(), req.Image)
	if err != nil {
		HandleAPIError(w, r, err, "Image analysis failed")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AnalyzeImageResponse{Features: features})
}
