package caption

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/SpideyPotter/InsightEye/internal/imaging"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

var (
	ErrEmptyResponse  = errors.New("gemini returned no content")
	ErrContentBlocked = errors.New("gemini blocked the content")
)

// generateFunc matches Models.GenerateContent so tests can stand in for the API.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Gemini captions images with a Gemini vision model.
type Gemini struct {
	generate generateFunc
	model    string
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewGemini creates a client for the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, logger zerolog.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(client.Models.GenerateContent, model, timeout, logger), nil
}

func newGemini(gen generateFunc, model string, timeout time.Duration, logger zerolog.Logger) *Gemini {
	return &Gemini{
		generate: gen,
		model:    model,
		timeout:  timeout,
		logger:   logger.With().Str("backend", BackendGemini).Str("model", model).Logger(),
	}
}

func (g *Gemini) Name() string { return BackendGemini }
func (g *Gemini) Close() error { return nil }

func (g *Gemini) Caption(ctx context.Context, img image.Image, p pipeline.DecodingParams) (string, error) {
	jpg, err := imaging.EncodeJPEG(img, jpegQuality)
	if err != nil {
		return "", err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(jpg, "image/jpeg"),
			genai.NewPartFromText(prompt(p)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	start := time.Now()
	resp, err := g.generate(ctx, g.model, contents, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	g.logger.Debug().Dur("took", time.Since(start)).Int("image_bytes", len(jpg)).Msg("caption received")
	return cleanCaption(text), nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	c := resp.Candidates[0]
	if c.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if c.Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}
