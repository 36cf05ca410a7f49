package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/imagebatch/internal/api"
	"github.com/phrazzld/imagebatch/internal/config"
	"github.com/phrazzld/imagebatch/internal/platform/dbpool"
	"github.com/phrazzld/imagebatch/internal/platform/gemini"
	"github.com/phrazzld/imagebatch/internal/platform/objectstore"
	"github.com/phrazzld/imagebatch/internal/platform/sqldb"
	"github.com/phrazzld/imagebatch/internal/platform/sqlstore"
	"github.com/phrazzld/imagebatch/internal/platform/taskapi"
	"github.com/phrazzld/imagebatch/internal/service"
	"github.com/phrazzld/imagebatch/internal/task"
)

// application holds the wired components of one process.
type application struct {
	config *config.Config
	logger *slog.Logger

	db       *sql.DB
	dialect  sqldb.Dialect
	pool     *dbpool.Pool
	overflow *task.OverflowQueue
	workers  *task.OverflowWorkers
	tasks    *taskapi.Client
	runner   *task.Runner
	batches  *service.BatchService

	// analyzer stays nil when vision analysis is not configured.
	analyzer api.ImageAnalyzer
}

// newApplication opens the database and wires every component. The caller
// must call cleanup once done.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, dialect, err := sqldb.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		dialect: dialect,
	}

	// The pool owns db from here on and closes it in cleanup.
	app.pool = dbpool.New(db, cfg.Database.PoolSize)
	app.overflow = task.NewOverflowQueue()
	app.workers = task.NewOverflowWorkers(app.overflow, cfg.Wait.OverflowWorkers, logger)

	tasks, err := taskapi.NewClient(taskapi.ConfigFrom(cfg.TaskAPI), logger)
	if err != nil {
		_ = app.pool.Close()
		return nil, fmt.Errorf("failed to create task API client: %w", err)
	}
	app.tasks = tasks

	results := sqlstore.NewResultStore(db, dialect)
	waiter := task.NewCompletionWaiter(app.pool, app.overflow, results, task.WaiterConfig{
		PollInterval: cfg.Wait.PollInterval(),
		Deadline:     cfg.Wait.Deadline(),
	}, logger)
	rows := service.NewRowProcessor(tasks, app.pool, results, waiter, logger)

	app.runner = task.NewRunner(task.RunnerConfig{
		WorkerCount: cfg.Batch.WorkerCount,
		QueueSize:   cfg.Batch.QueueSize,
	}, logger)

	var uploader service.LogUploader
	if cfg.Storage.Bucket != "" {
		s3, err := objectstore.NewS3Uploader(cfg.Storage)
		if err != nil {
			_ = app.pool.Close()
			return nil, fmt.Errorf("failed to create log uploader: %w", err)
		}
		uploader = s3
	}

	app.batches = service.NewBatchService(rows, results, app.pool, app.runner, uploader, service.BatchConfig{
		Concurrency: cfg.Batch.Concurrency,
		LogDir:      cfg.Jobs.LogDir,
	}, logger)

	if cfg.Vision.GeminiAPIKey != "" {
		analyzer, err := gemini.NewVisionAnalyzer(ctx, cfg.Vision, logger)
		if err != nil {
			_ = app.pool.Close()
			return nil, fmt.Errorf("failed to create vision analyzer: %w", err)
		}
		app.analyzer = analyzer
	}

	return app, nil
}

// start launches the background workers.
func (app *application) start() error {
	app.workers.Start()
	if err := app.runner.Start(); err != nil {
		app.workers.Stop()
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	return nil
}

// cleanup stops the workers and releases the database.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.overflow != nil {
		app.overflow.Close()
	}
	if app.workers != nil {
		app.workers.Stop()
	}
	if app.pool != nil {
		if err := app.pool.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
}
