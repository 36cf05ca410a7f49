package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/phrazzld/imagebatch/internal/config"
	"github.com/phrazzld/imagebatch/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogBuffer is a synchronized buffer for capturing log output in tests
type testLogBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *testLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *testLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		want  slog.Level
		known bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		level, ok := logger.ParseLevel(tt.name)
		assert.Equal(t, tt.want, level, tt.name)
		assert.Equal(t, tt.known, ok, tt.name)
	}
}

func TestSetup(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	l, err := logger.Setup(config.ServerConfig{LogLevel: "debug", Port: 8080})

	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Same(t, l, slog.Default())
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
}

func TestNew_WritesJSON(t *testing.T) {
	t.Parallel()

	buf := &testLogBuffer{}
	l := logger.New(buf, slog.LevelInfo)

	l.Debug("hidden")
	l.Info("row processed", "absolute_row_index", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "row processed", entry["msg"])
	assert.Equal(t, float64(7), entry["absolute_row_index"])
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	assert.Same(t, slog.Default(), logger.FromContext(context.Background()))

	buf := &testLogBuffer{}
	l := logger.New(buf, slog.LevelInfo)
	ctx := logger.WithLogger(context.Background(), l)

	assert.Same(t, l, logger.FromContext(ctx))

	fallback := logger.New(buf, slog.LevelDebug)
	assert.Same(t, fallback, logger.FromContextOr(context.Background(), fallback))
	assert.Same(t, l, logger.FromContextOr(ctx, fallback))
	assert.Same(t, slog.Default(), logger.FromContextOr(context.Background(), nil))
}

func TestJobLogger_TeesToFile(t *testing.T) {
	t.Parallel()

	buf := &testLogBuffer{}
	base := logger.New(buf, slog.LevelInfo)

	jl, err := logger.NewJobLogger(base, t.TempDir(), "batch1")
	require.NoError(t, err)

	jl.Info("starting job", "file_id", "batch1")
	jl.Debug("debug only in file")
	require.NoError(t, jl.Close())

	assert.Contains(t, buf.String(), "starting job")
	assert.NotContains(t, buf.String(), "debug only in file")

	content, err := os.ReadFile(jl.Path())
	require.NoError(t, err)
	assert.Contains(t, string(content), "starting job")
	assert.Contains(t, string(content), "debug only in file")
	assert.Contains(t, string(content), `"job_id":"batch1"`)
	assert.True(t, strings.HasSuffix(jl.Path(), "job_batch1.log"))
}
