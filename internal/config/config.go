package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"`
	TaskAPI  TaskAPIConfig  `mapstructure:"task_api" validate:"required"`
	Wait     WaitConfig     `mapstructure:"wait" validate:"required"`
	Batch    BatchConfig    `mapstructure:"batch" validate:"required"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the datastore connection and pool settings.
type DatabaseConfig struct {
	// Driver selects the SQL dialect: postgres, sqlserver, mysql or sqlite.
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlserver mysql sqlite"`
	URL    string `mapstructure:"url" validate:"required"`

	// PoolSize bounds the number of connections shared by all concurrent
	// row processors. Exhaustion of this pool is what routes waits through
	// the overflow queue.
	PoolSize               int `mapstructure:"pool_size" validate:"required,gt=0"`
	ConnMaxLifetimeMinutes int `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
}

// AuthConfig contains API authentication settings. An empty secret disables
// bearer-token checks.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}

// TaskAPIConfig configures the remote task-creation service client.
type TaskAPIConfig struct {
	Endpoint              string  `mapstructure:"endpoint" validate:"required,url"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds" validate:"gt=0"`
	PollIntervalSeconds   int     `mapstructure:"poll_interval_seconds" validate:"gt=0"`
	PollTimeoutSeconds    int     `mapstructure:"poll_timeout_seconds" validate:"gt=0"`
	PollRetryMax          int     `mapstructure:"poll_retry_max" validate:"gte=0"`
	CreateRatePerSecond   float64 `mapstructure:"create_rate_per_second" validate:"gte=0"`
}

// WaitConfig configures the completion waiter.
type WaitConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"gt=0"`
	DeadlineSeconds     int `mapstructure:"deadline_seconds" validate:"gt=0"`
	OverflowWorkers     int `mapstructure:"overflow_workers" validate:"gt=0"`
}

// BatchConfig configures batch fan-out and the background job runner.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
}

// JobsConfig configures per-job log files.
type JobsConfig struct {
	LogDir string `mapstructure:"log_dir"`
}

// StorageConfig configures the object storage used for job logs. Uploads
// are disabled when Bucket is empty.
type StorageConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region" validate:"required_with=Bucket"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	Prefix   string `mapstructure:"prefix"`
}

// VisionConfig configures image analysis. Analysis is disabled when the
// API key is empty.
type VisionConfig struct {
	GeminiAPIKey   string   `mapstructure:"gemini_api_key"`
	Models         []string `mapstructure:"models" validate:"required_with=GeminiAPIKey"`
	MaxRetries     int      `mapstructure:"max_retries" validate:"gte=0"`
	InitialDelayMs int      `mapstructure:"initial_delay_ms" validate:"gte=0"`
	MinImageBytes  int      `mapstructure:"min_image_bytes" validate:"gte=0"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PollInterval returns the completion waiter sleep between reads.
func (c WaitConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Deadline returns the outer deadline of a completion wait.
func (c WaitConfig) Deadline() time.Duration {
	return time.Duration(c.DeadlineSeconds) * time.Second
}

// PollInterval returns the interval of the direct remote status poll.
func (c TaskAPIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// PollTimeout returns the ceiling of the direct remote status poll.
func (c TaskAPIConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout.
func (c TaskAPIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ConnMaxLifetime returns the maximum lifetime of a pooled connection.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// InitialDelay returns the first backoff delay for rate-limited vision calls.
func (c VisionConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMs) * time.Millisecond
}
