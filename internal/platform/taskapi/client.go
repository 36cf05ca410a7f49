package taskapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/phrazzld/imagebatch/internal/config"
	"github.com/phrazzld/imagebatch/internal/domain"
	"github.com/phrazzld/imagebatch/internal/platform/metrics"
)

const (
	createPath = "/api/v1/image/create"
	pollPath   = "/api/v1/image/poll/"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 1 << 20
)

// Remote task states reported by the poll endpoint.
const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
	StatusError     = "Error"
)

var (
	// ErrTaskFailed is returned by PollTaskStatus when the remote task
	// reports Failed or Error.
	ErrTaskFailed = errors.New("task failed or encountered an error")

	// ErrPollTimeout is returned by PollTaskStatus when the poll ceiling is
	// reached. The task is abandoned.
	ErrPollTimeout = errors.New("polling timeout reached, task abandoned")

	// ErrUnexpectedStatus is returned for a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Config configures a Client.
type Config struct {
	Endpoint            string
	RequestTimeout      time.Duration
	PollInterval        time.Duration
	PollTimeout         time.Duration
	PollRetryMax        int
	CreateRatePerSecond float64
}

// ConfigFrom converts the application configuration.
func ConfigFrom(cfg config.TaskAPIConfig) Config {
	return Config{
		Endpoint:            cfg.Endpoint,
		RequestTimeout:      cfg.RequestTimeout(),
		PollInterval:        cfg.PollInterval(),
		PollTimeout:         cfg.PollTimeout(),
		PollRetryMax:        cfg.PollRetryMax,
		CreateRatePerSecond: cfg.CreateRatePerSecond,
	}
}

// TaskStatus is the decoded body of the poll endpoint. Raw keeps the whole
// payload for callers that need fields beyond the status.
type TaskStatus struct {
	TaskID string          `json:"task_id,omitempty"`
	Status string          `json:"status"`
	Raw    json.RawMessage `json:"-"`
}

// Client talks to the remote task service.
type Client struct {
	baseURL *url.URL
	create  *retryablehttp.Client
	poll    *retryablehttp.Client
	limiter *rate.Limiter
	config  Config
	logger  *slog.Logger
}

// NewClient creates a Client for cfg.Endpoint.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid task API endpoint %q", cfg.Endpoint)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5000 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.CreateRatePerSecond > 0 {
		burst := int(cfg.CreateRatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.CreateRatePerSecond), burst)
	}

	return &Client{
		baseURL: base,
		create:  newHTTPClient(cfg.RequestTimeout, 0, logger),
		poll:    newHTTPClient(cfg.RequestTimeout, cfg.PollRetryMax, logger),
		limiter: limiter,
		config:  cfg,
		logger:  logger.With("component", "taskapi"),
	}, nil
}

func newHTTPClient(timeout time.Duration, retryMax int, logger *slog.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient.Timeout = timeout
	c.RetryMax = retryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 10 * time.Second
	c.Logger = logger
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

type createRequest struct {
	DatasetSplit []string `json:"dataset_split"`
}

// CreateTask schedules the remote task for item. Any failure wraps
// domain.ErrTaskCreation. An empty task id in an otherwise valid response
// is returned as is.
func (c *Client) CreateTask(ctx context.Context, item domain.SubmittedItem) (task *domain.RemoteTask, err error) {
	defer func() {
		metrics.CounterTasksCreated.WithLabelValues(metrics.Outcome(err)).Inc()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTaskCreation, err)
		}
	}

	body, err := json.Marshal(createRequest{DatasetSplit: item.DatasetSplit()})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", domain.ErrTaskCreation, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url(createPath), body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", domain.ErrTaskCreation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("creating image task",
		"absolute_row_index", item.AbsoluteRowIndex,
		"file_id", item.UniqueID)

	resp, err := c.create.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTaskCreation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTaskCreation, err)
	}

	var result domain.RemoteTask
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrTaskCreation, err)
	}

	c.logger.Info("image task created",
		"task_id", result.TaskID,
		"absolute_row_index", item.AbsoluteRowIndex,
		"file_id", item.UniqueID)
	return &result, nil
}

// GetTaskStatus performs a single status request.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	if taskID == "" {
		return nil, errors.New("task id cannot be empty")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url(pollPath+url.PathEscape(taskID)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.poll.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll task %s: %w", taskID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to poll task %s: %w", taskID, err)
	}

	var status TaskStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status of task %s: %w", taskID, err)
	}
	status.Raw = data
	return &status, nil
}

// PollTaskStatus polls the remote task until it completes, fails or the
// poll ceiling is reached.
func (c *Client) PollTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	log := c.logger.With("task_id", taskID)
	log.Info("starting to poll task status")

	pollCtx, cancel := context.WithTimeout(ctx, c.config.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		status, err := c.GetTaskStatus(pollCtx, taskID)
		switch {
		case err != nil:
			if pollCtx.Err() != nil && ctx.Err() == nil {
				log.Warn("poll timeout reached, abandoning task")
				return nil, ErrPollTimeout
			}
			return nil, err
		case status.Status == StatusCompleted:
			log.Info("task completed")
			return status, nil
		case status.Status == StatusFailed || status.Status == StatusError:
			log.Error("task failed or encountered an error", "status", status.Status)
			return status, fmt.Errorf("%w: status %s", ErrTaskFailed, status.Status)
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("poll timeout reached, abandoning task")
			return nil, ErrPollTimeout
		case <-ticker.C:
		}
	}
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + path
}

func readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
