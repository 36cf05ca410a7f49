package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/imagebatch/internal/api"
	"github.com/phrazzld/imagebatch/internal/config"
	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/sqldb"
)

// newTaskServer fakes the remote creation endpoint, answering taskID.
func newTaskServer(t *testing.T, taskID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testConfig returns a configuration backed by a migrated SQLite file.
func testConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "error"},
		Database: config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "app.db"), PoolSize: 4},
		TaskAPI: config.TaskAPIConfig{
			Endpoint:              endpoint,
			RequestTimeoutSeconds: 5,
			PollIntervalSeconds:   1,
			PollTimeoutSeconds:    5,
		},
		Wait:  config.WaitConfig{PollIntervalSeconds: 1, DeadlineSeconds: 1, OverflowWorkers: 1},
		Batch: config.BatchConfig{Concurrency: 4, QueueSize: 4, WorkerCount: 1},
		Jobs:  config.JobsConfig{LogDir: t.TempDir()},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, dialect, err := sqldb.Open(ctx, cfg.Database, quietLogger())
	require.NoError(t, err)
	require.NoError(t, sqldb.Migrate(ctx, db, dialect, "up", quietLogger()))
	require.NoError(t, db.Close())

	return cfg
}

func newTestApplication(t *testing.T, cfg *config.Config) *application {
	t.Helper()

	app, err := newApplication(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.NoError(t, app.start())
	t.Cleanup(app.cleanup)
	return app
}

func TestNewApplication_OptionalComponents(t *testing.T) {
	srv := newTaskServer(t, "")
	app := newTestApplication(t, testConfig(t, srv.URL))

	assert.Nil(t, app.analyzer, "vision analysis needs an API key")
	assert.NotNil(t, app.batches)
	assert.Equal(t, 4, app.pool.Size())
}

func TestNewApplication_InvalidEndpoint(t *testing.T) {
	cfg := testConfig(t, "http://placeholder")
	cfg.TaskAPI.Endpoint = "not a url"

	_, err := newApplication(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task API client")
}

func TestApplication_SyncBatchEndToEnd(t *testing.T) {
	tests := []struct {
		name      string
		taskID    string
		wantError string
	}{
		{name: "empty task id", taskID: "", wantError: domain.MsgFailedToStart},
		{name: "never completed", taskID: "T-1", wantError: domain.MsgIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTaskServer(t, tt.taskID)
			app := newTestApplication(t, testConfig(t, srv.URL))
			h := app.setupRouter()

			body := `{"file_id":"F1","rows":[{"brandValue":"Nike","searchValue":"red shoes","absoluteRowIndex":5}]}`
			rr := serve(t, h, http.MethodPost, "/api/v1/batches/sync", body, "")
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var resp api.BatchResultsResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.Len(t, resp.Results, 1)
			assert.Equal(t, tt.wantError, resp.Results[0].Error)
			assert.Equal(t, 5, resp.Results[0].AbsoluteRowIndex)
			assert.Equal(t, "red shoes", resp.Results[0].SearchValue)

			rr = serve(t, h, http.MethodGet, "/api/v1/batches/F1/results", "", "")
			require.Equal(t, http.StatusOK, rr.Code)

			var rows api.TrackingRowsResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
			assert.Len(t, rows.Rows, 1, "the tracking row is written before the task id check")
		})
	}
}
