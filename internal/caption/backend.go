package caption

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// Backend names accepted by New.
const (
	BackendGemini      = "gemini"
	BackendLlamaServer = "llama_server"
	BackendNone        = "none"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultTimeout     = 30 * time.Second
	jpegQuality        = 90
)

// ErrNoBackend is returned by the captioner built for BackendNone.
var ErrNoBackend = errors.New("no caption backend configured")

// Config selects and parameterizes a backend.
type Config struct {
	Backend        string
	GeminiAPIKey   string
	GeminiModel    string
	LlamaServerURL string
	Timeout        time.Duration
}

// Captioner is the pipeline.Captioner plus a name for logs and readiness.
type Captioner interface {
	pipeline.Captioner
	Name() string
	Close() error
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Captioner, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout, logger)
	case BackendLlamaServer:
		return NewLlamaServer(cfg.LlamaServerURL, cfg.Timeout, logger)
	case BackendNone, "":
		return Unavailable{}, nil
	}
	return nil, fmt.Errorf("unknown caption backend %q", cfg.Backend)
}

// Unavailable fails every request with ErrNoBackend.
type Unavailable struct{}

func (Unavailable) Caption(context.Context, image.Image, pipeline.DecodingParams) (string, error) {
	return "", ErrNoBackend
}
func (Unavailable) Name() string { return BackendNone }
func (Unavailable) Close() error { return nil }

// Available reports whether c can produce captions at all.
func Available(c Captioner) bool {
	if c == nil {
		return false
	}
	_, none := c.(Unavailable)
	return !none
}

func prompt(p pipeline.DecodingParams) string {
	return fmt.Sprintf("Describe this image in a single plain sentence of at most %d words. "+
		"Do not repeat phrases. Reply with the sentence only.", p.MaxLength)
}

// cleanCaption keeps the first non-empty line and trims quotes and whitespace.
func cleanCaption(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "\"'`")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
