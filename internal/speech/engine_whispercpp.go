//go:build whisper_cpp

package speech

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"
)

// EngineName identifies the recognizer compiled into this build.
const EngineName = "whisper.cpp"

// minSamples skips clips shorter than 100ms.
const minSamples = SampleRate / 10

type whisperEngine struct {
	model    whisperpkg.Model
	language string
	threads  uint
	logger   zerolog.Logger
	// guards model: whisper.cpp contexts are not safe for concurrent use of
	// one model, and Close must not free it under a running Transcribe
	mu sync.Mutex
}

func NewEngine(modelPath, language string, logger zerolog.Logger) (Engine, error) {
	if modelPath == "" {
		return nil, ErrNoModel
	}
	m, err := whisperpkg.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	if language == "" {
		language = "en"
	}
	logger.Info().Str("model", modelPath).Str("language", language).Msg("whisper model loaded")
	return &whisperEngine{
		model:    m,
		language: language,
		threads:  uint(runtime.NumCPU()),
		logger:   logger,
	}, nil
}

// Close waits for a Transcribe in progress before freeing the model.
func (e *whisperEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}

func (e *whisperEngine) Transcribe(samples []float32) (string, error) {
	if len(samples) < minSamples {
		return "", nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return "", ErrEngineClosed
	}

	ctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create context: %w", err)
	}
	ctx.SetThreads(e.threads)
	if err := ctx.SetLanguage(e.language); err != nil {
		e.logger.Warn().Err(err).Str("language", e.language).Msg("whisper language")
	}
	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}
	var parts []string
	for {
		seg, err := ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.logger.Warn().Err(err).Msg("whisper segment")
			break
		}
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
