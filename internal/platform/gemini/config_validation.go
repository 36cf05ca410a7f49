package gemini

import (
	"fmt"
	"time"

	"github.com/phrazzld/imagebatch/internal/config"
)

// Defaults applied to zero-valued options.
const (
	DefaultMaxRetries    = 5
	DefaultInitialDelay  = 500 * time.Millisecond
	DefaultMinImageBytes = 100
)

// DefaultModels is the fallback order used when none are configured.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-pro"}

// Options tunes a VisionAnalyzer.
type Options struct {
	// Models are tried in order.
	Models []string

	// MaxRetries bounds the rate-limit retries per model.
	MaxRetries int

	// InitialDelay is the first rate-limit backoff; it doubles per attempt.
	InitialDelay time.Duration

	// MinImageBytes rejects decoded images below this size.
	MinImageBytes int
}

// OptionsFrom converts the application configuration.
func OptionsFrom(cfg config.VisionConfig) Options {
	return Options{
		Models:        cfg.Models,
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  cfg.InitialDelay(),
		MinImageBytes: cfg.MinImageBytes,
	}
}

func (o Options) withDefaults() Options {
	if len(o.Models) == 0 {
		o.Models = DefaultModels
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MinImageBytes <= 0 {
		o.MinImageBytes = DefaultMinImageBytes
	}
	return o
}

func validateConfig(cfg config.VisionConfig) error {
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	for i, model := range cfg.Models {
		if model == "" {
			return fmt.Errorf("%w: model %d has an empty name", ErrInvalidConfig, i)
		}
	}
	return nil
}
