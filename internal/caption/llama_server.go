package caption

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/imaging"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

const llamaImageID = 10

// LlamaServer captions images through a llama.cpp server loaded with a
// multimodal model. It uses the native /completion endpoint, which accepts
// base64 image data referenced from the prompt as [img-ID].
type LlamaServer struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewLlamaServer constructs a server-backed captioner.
func NewLlamaServer(baseURL string, timeout time.Duration, logger zerolog.Logger) (*LlamaServer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("llama server url cannot be empty")
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Requests carry their own deadline through the context.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &LlamaServer{
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: cli,
		logger:     logger.With().Str("backend", BackendLlamaServer).Str("url", baseURL).Logger(),
	}, nil
}

type llamaImage struct {
	Data string `json:"data"`
	ID   int    `json:"id"`
}

type llamaCompletionRequest struct {
	Prompt      string       `json:"prompt"`
	ImageData   []llamaImage `json:"image_data"`
	NPredict    int          `json:"n_predict"`
	Temperature float32      `json:"temperature"`
	RepeatLastN int          `json:"repeat_last_n,omitempty"`
	Stop        []string     `json:"stop,omitempty"`
	CachePrompt bool         `json:"cache_prompt"`
	Stream      bool         `json:"stream"`
}

type llamaCompletionResponse struct {
	Content string `json:"content"`
	Stop    bool   `json:"stop"`
}

func (s *LlamaServer) Name() string { return BackendLlamaServer }
func (s *LlamaServer) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *LlamaServer) Caption(ctx context.Context, img image.Image, p pipeline.DecodingParams) (string, error) {
	jpg, err := imaging.EncodeJPEG(img, jpegQuality)
	if err != nil {
		return "", err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	payload := llamaCompletionRequest{
		Prompt:      fmt.Sprintf("USER:[img-%d]%s\nASSISTANT:", llamaImageID, prompt(p)),
		ImageData:   []llamaImage{{Data: base64.StdEncoding.EncodeToString(jpg), ID: llamaImageID}},
		NPredict:    p.MaxLength * 2,
		Temperature: 0,
		RepeatLastN: p.NoRepeatNGramSize,
		Stop:        []string{"\n", "USER:"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.New("llama server http error: " + resp.Status + ": " + strings.TrimSpace(string(b)))
	}
	var out llamaCompletionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode llama server response: %w", err)
	}
	s.logger.Debug().Dur("took", time.Since(start)).Int("image_bytes", len(jpg)).Msg("caption received")
	return cleanCaption(out.Content), nil
}
