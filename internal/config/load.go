package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "IMAGEBATCH"

// keys without defaults still need an explicit env binding so that
// Unmarshal sees them.
var boundKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"task_api.endpoint",
	"storage.bucket",
	"storage.endpoint",
	"vision.gemini_api_key",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file when path is
// not empty instead of searching the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs the struct validation rules on cfg.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.pool_size", 32)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("task_api.request_timeout_seconds", 60)
	v.SetDefault("task_api.poll_interval_seconds", 60)
	v.SetDefault("task_api.poll_timeout_seconds", 5000)
	v.SetDefault("task_api.poll_retry_max", 3)
	v.SetDefault("task_api.create_rate_per_second", 0)

	v.SetDefault("wait.poll_interval_seconds", 5)
	v.SetDefault("wait.deadline_seconds", 1800)
	v.SetDefault("wait.overflow_workers", 2)

	v.SetDefault("batch.concurrency", 16)
	v.SetDefault("batch.queue_size", 100)
	v.SetDefault("batch.worker_count", 2)

	v.SetDefault("jobs.log_dir", os.TempDir())

	v.SetDefault("storage.region", "us-east-2")
	v.SetDefault("storage.prefix", "job_logs")

	v.SetDefault("vision.models", []string{"gemini-2.0-flash", "gemini-1.5-pro"})
	v.SetDefault("vision.max_retries", 5)
	v.SetDefault("vision.initial_delay_ms", 500)
	v.SetDefault("vision.min_image_bytes", 100)

	v.SetDefault("metrics.enabled", true)
}
