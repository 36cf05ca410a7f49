package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/genai"

	"github.com/phrazzld/imagebatch/internal/config"
	"github.com/phrazzld/imagebatch/internal/platform/metrics"
)

const defaultMIMEType = "image/jpeg"

// GenerateFunc matches genai's Models.GenerateContent.
type GenerateFunc func(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error)

// VisionAnalyzer extracts product features from images.
type VisionAnalyzer struct {
	generate GenerateFunc
	options  Options
	schema   *jsonschema.Schema
	logger   *slog.Logger

	// sleep waits between rate-limit retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	mu  sync.Mutex
	rng *rand.Rand
}

// NewVisionAnalyzer creates an analyzer backed by the Gemini API.
func NewVisionAnalyzer(ctx context.Context, cfg config.VisionConfig, logger *slog.Logger) (*VisionAnalyzer, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return NewVisionAnalyzerWithGenerate(client.Models.GenerateContent, OptionsFrom(cfg), logger)
}

// NewVisionAnalyzerWithGenerate creates an analyzer around generate.
func NewVisionAnalyzerWithGenerate(generate GenerateFunc, opts Options, logger *slog.Logger) (*VisionAnalyzer, error) {
	if generate == nil {
		return nil, fmt.Errorf("%w: generate function cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	return &VisionAnalyzer{
		generate: generate,
		options:  opts.withDefaults(),
		schema:   schema,
		logger:   logger.With("component", "vision"),
		sleep:    sleepContext,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("features.json", strings.NewReader(featuresSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("features.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// DecodeImage decodes a base64 string or a data URI. The MIME type of a
// data URI is returned; plain base64 is assumed to be JPEG.
func DecodeImage(input string, minBytes int) ([]byte, string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, "", fmt.Errorf("%w: empty input", ErrInvalidImage)
	}

	mimeType := defaultMIMEType
	if strings.HasPrefix(input, "data:") {
		header, payload, ok := strings.Cut(input, ",")
		if !ok {
			return nil, "", fmt.Errorf("%w: data URI without payload", ErrInvalidImage)
		}
		header = strings.TrimPrefix(header, "data:")
		mediaType, encoding, _ := strings.Cut(header, ";")
		if encoding != "base64" {
			return nil, "", fmt.Errorf("%w: data URI is not base64 encoded", ErrInvalidImage)
		}
		if mediaType != "" {
			mimeType = mediaType
		}
		input = payload
	}

	data, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) < minBytes {
		return nil, "", fmt.Errorf("%w: %d bytes, need at least %d", ErrImageTooSmall, len(data), minBytes)
	}
	return data, mimeType, nil
}

// Analyze describes the image and extracts its product features.
func (a *VisionAnalyzer) Analyze(ctx context.Context, image string) (*Features, error) {
	data, mimeType, err := DecodeImage(image, a.options.MinImageBytes)
	if err != nil {
		a.logger.WarnContext(ctx, "rejected image input", "error", err)
		return nil, err
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
			{Text: analysisPrompt},
		},
	}}

	var lastErr error
	for i, model := range a.options.Models {
		features, err := a.analyzeWithModel(ctx, model, contents)
		metrics.CounterVisionRequests.WithLabelValues(model, metrics.Outcome(err)).Inc()
		if err == nil {
			return features, nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrContentBlocked) {
			return nil, err
		}

		lastErr = err
		if i+1 < len(a.options.Models) {
			a.logger.WarnContext(ctx, "model failed, falling back",
				"model", model,
				"next_model", a.options.Models[i+1],
				"error", err)
		}
	}
	return nil, lastErr
}

// analyzeWithModel calls one model, retrying rate-limit errors.
func (a *VisionAnalyzer) analyzeWithModel(ctx context.Context, model string, contents []*genai.Content) (*Features, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	maxRetries := a.options.MaxRetries

	for attempt := 0; ; attempt++ {
		a.logger.DebugContext(ctx, "calling vision model", "model", model, "attempt", attempt+1)

		resp, err := a.generate(ctx, model, contents, cfg)
		if err == nil {
			return a.parseResponse(ctx, model, resp)
		}

		if !isRateLimited(err) {
			a.logger.ErrorContext(ctx, "vision analysis failed", "model", model, "error", err)
			return nil, fmt.Errorf("vision analysis with %s failed: %w", model, err)
		}
		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: %s after %d retries: %v", ErrRateLimited, model, maxRetries, err)
		}

		delay := a.backoff(attempt)
		a.logger.WarnContext(ctx, "rate limit hit, retrying",
			"model", model,
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"delay", delay)
		if err := a.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// backoff returns initial * 2^attempt plus up to one second of jitter.
func (a *VisionAnalyzer) backoff(attempt int) time.Duration {
	a.mu.Lock()
	jitter := a.rng.Float64()
	a.mu.Unlock()

	base := float64(a.options.InitialDelay) * math.Pow(2, float64(attempt))
	return time.Duration(base + jitter*float64(time.Second))
}

func (a *VisionAnalyzer) parseResponse(ctx context.Context, model string, resp *genai.GenerateContentResponse) (*Features, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates returned", ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, ErrContentBlocked
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	raw := strings.TrimSpace(text.String())
	if raw == "" {
		return nil, fmt.Errorf("%w: no analysis text returned", ErrInvalidResponse)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: JSON decode error: %v", ErrInvalidResponse, err)
	}
	if err := a.schema.Validate(doc); err != nil {
		a.logger.WarnContext(ctx, "vision response does not match schema", "model", model, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var features Features
	if err := json.Unmarshal([]byte(raw), &features); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	a.logger.InfoContext(ctx, "image analysis successful", "model", model)
	return &features, nil
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "Resource has been exhausted")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
