package speech

import (
	"errors"
	"fmt"
	"os"

	"github.com/SpideyPotter/InsightEye/internal/common/fsutil"
)

// SampleRate is the rate whisper expects and the recorder produces.
const SampleRate = 16000

var (
	// ErrNoSpeech means a recording held no audio.
	ErrNoSpeech = errors.New("no speech recorded")
	// ErrNoModel is returned when recognition is compiled in but no model is configured.
	ErrNoModel = errors.New("no whisper model configured")
	// ErrEngineClosed is returned by Transcribe after Close.
	ErrEngineClosed = errors.New("speech engine closed")
)

// Engine turns 16 kHz mono PCM into text.
type Engine interface {
	Transcribe(samples []float32) (string, error)
	Close() error
}

// ResolveModel expands ~ in p. When p is a directory the first *.bin model
// file in it is used. An empty p stays empty.
func ResolveModel(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	p, err := fsutil.ExpandHome(p)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("whisper model: %w", err)
	}
	if !fi.IsDir() {
		return p, nil
	}
	m, err := fsutil.FirstWithExt(p, ".bin")
	if err != nil {
		return "", fmt.Errorf("whisper model: %w", err)
	}
	if m == "" {
		return "", fmt.Errorf("%w: no .bin file in %s", ErrNoModel, p)
	}
	return m, nil
}
