package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/imagebatch/internal/api"
	apiMiddleware "github.com/phrazzld/imagebatch/internal/api/middleware"
	"github.com/phrazzld/imagebatch/internal/config"
	"github.com/phrazzld/imagebatch/internal/platform/metrics"
)

// setupRouter builds the router from the application's services.
func (app *application) setupRouter() http.Handler {
	return newRouter(app.config, app.batches, app.analyzer, app.logger)
}

// newRouter creates the router with all routes and middleware. analyzer may
// be nil, in which case image analysis answers 503.
func newRouter(cfg *config.Config, batches api.BatchService, analyzer api.ImageAnalyzer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace(logger))

	batchHandler := api.NewBatchHandler(batches, logger)
	imageHandler := api.NewImageHandler(analyzer, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Auth.JWTSecret != "" {
			r.Use(apiMiddleware.NewAuthMiddleware(cfg.Auth.JWTSecret).Authenticate)
		}

		r.Post("/batches", batchHandler.CreateBatch)
		r.Post("/batches/sync", batchHandler.ProcessBatchSync)
		r.Get("/batches/{fileID}/results", batchHandler.ListResults)
		r.Get("/jobs/{jobID}", batchHandler.GetJob)

		r.Post("/images/analyze", imageHandler.Analyze)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	return r
}
