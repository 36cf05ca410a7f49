package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// JobLogger is a logger bound to one background job. Every record goes to
// the base handler and to the job's own log file, so the file can be shipped
// to object storage once the job ends.
type JobLogger struct {
	*slog.Logger
	path string
	file *os.File
}

// NewJobLogger creates <dir>/job_<jobID>.log and returns a logger that tees
// into it. The caller must Close the JobLogger.
func NewJobLogger(base *slog.Logger, dir, jobID string) (*JobLogger, error) {
	if base == nil {
		base = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("job_%s.log", jobID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open job log file: %w", err)
	}

	handler := &teeHandler{
		handlers: []slog.Handler{
			base.Handler(),
			slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}),
		},
	}

	return &JobLogger{
		Logger: slog.New(handler).With("job_id", jobID),
		path:   path,
		file:   file,
	}, nil
}

// Path returns the location of the job log file.
func (l *JobLogger) Path() string {
	return l.path
}

// Close flushes and closes the job log file.
func (l *JobLogger) Close() error {
	if err := l.file.Sync(); err != nil && !errors.Is(err, os.ErrClosed) {
		_ = l.file.Close()
		return fmt.Errorf("failed to sync job log: %w", err)
	}
	return l.file.Close()
}

// teeHandler forwards every record to all wrapped handlers that accept its
// level.
type teeHandler struct {
	handlers []slog.Handler
}

// Enabled implements the slog.Handler interface.
func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements the slog.Handler interface.
func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements the slog.Handler interface.
func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

// WithGroup implements the slog.Handler interface.
func (h *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}
