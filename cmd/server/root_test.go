package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/sheet"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// setCommandEnv points the command configuration at a fresh SQLite file.
func setCommandEnv(t *testing.T, endpoint string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("IMAGEBATCH_DATABASE_DRIVER", "sqlite")
	t.Setenv("IMAGEBATCH_DATABASE_URL", dbPath)
	t.Setenv("IMAGEBATCH_TASK_API_ENDPOINT", endpoint)
	t.Setenv("IMAGEBATCH_SERVER_LOG_LEVEL", "error")
	t.Setenv("IMAGEBATCH_WAIT_POLL_INTERVAL_SECONDS", "1")
	t.Setenv("IMAGEBATCH_WAIT_DEADLINE_SECONDS", "1")
	t.Setenv("IMAGEBATCH_JOBS_LOG_DIR", t.TempDir())
	return dbPath
}

func TestRootCommand_Help(t *testing.T) {
	out, err := runCommand(t)
	require.NoError(t, err)
	for _, name := range []string{"serve", "migrate", "process", "poll"} {
		assert.Contains(t, out, name)
	}
}

func TestMigrateCommand_RejectsUnknownCommand(t *testing.T) {
	_, err := runCommand(t, "migrate", "sideways")
	require.Error(t, err)
}

func TestProcessCommand_RequiresInput(t *testing.T) {
	setCommandEnv(t, "http://tasks.invalid")

	_, err := runCommand(t, "process")
	require.ErrorIs(t, err, errInputRequired)
}

func TestProcessCommand_EndToEnd(t *testing.T) {
	srv := newTaskServer(t, "")
	setCommandEnv(t, srv.URL)

	_, err := runCommand(t, "migrate", "up")
	require.NoError(t, err)

	dir := t.TempDir()
	input := filepath.Join(dir, "rows.xlsx")
	output := filepath.Join(dir, "results.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Brand", "Search", "Row"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Nike", "red shoes", 5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Adidas", "blue hat", 9}))
	require.NoError(t, f.SaveAs(input))
	require.NoError(t, f.Close())

	out, err := runCommand(t, "process", "--input", input, "--output", output, "--file-id", "F1")
	require.NoError(t, err)

	var results []domain.RowResult
	require.NoError(t, json.Unmarshal([]byte(out), &results), out)
	require.Len(t, results, 2)
	assert.Equal(t, 5, results[0].AbsoluteRowIndex)
	assert.Equal(t, "red shoes", results[0].SearchValue)
	assert.Equal(t, domain.MsgFailedToStart, results[0].Error)
	assert.Equal(t, 9, results[1].AbsoluteRowIndex)

	written, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer func() { _ = written.Close() }()
	rows, err := written.GetRows(sheet.ResultsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestPollCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task_id":"T-1","status":"Completed","result":"https://img.example.com/a.jpg"}`))
	}))
	t.Cleanup(srv.Close)
	setCommandEnv(t, srv.URL)

	out, err := runCommand(t, "poll", "T-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "Completed"`)
	assert.Contains(t, out, "https://img.example.com/a.jpg")
}
