package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// listenGrace lets the recorder finish writing after its own duration limit.
const listenGrace = 2 * time.Second

// Narrator implements pipeline.Narrator on top of a Recorder, an Engine and
// a Speaker.
type Narrator struct {
	recorder Recorder
	engine   Engine
	speaker  Speaker
	tmpDir   string
	grace    time.Duration
	logger   zerolog.Logger
}

// NewNarrator wires the parts. tmpDir holds short-lived recordings; "" uses
// the system temp dir.
func NewNarrator(rec Recorder, eng Engine, spk Speaker, tmpDir string, logger zerolog.Logger) *Narrator {
	return &Narrator{
		recorder: rec,
		engine:   eng,
		speaker:  spk,
		tmpDir:   tmpDir,
		grace:    listenGrace,
		logger:   logger.With().Str("component", "speech").Logger(),
	}
}

// Listen records for at most timeout and returns the lowercased transcript.
// Silence and timeouts give "" with a nil error.
func (n *Narrator) Listen(ctx context.Context, timeout time.Duration) (string, error) {
	f, err := os.CreateTemp(n.tmpDir, "insighteye-listen-*.wav")
	if err != nil {
		return "", fmt.Errorf("temp recording: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	defer os.Remove(path)

	rctx, cancel := context.WithTimeout(ctx, timeout+n.grace)
	err = n.recorder.Record(rctx, timeout, path)
	timedOut := errors.Is(rctx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut {
			n.logger.Debug().Dur("timeout", timeout).Msg("listen timed out")
			return "", nil
		}
		return "", err
	}

	rf, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer rf.Close()
	samples, err := DecodeWAV(rf)
	if errors.Is(err, ErrNoSpeech) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("decode recording: %w", err)
	}
	text, err := n.engine.Transcribe(samples)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	text = strings.ToLower(strings.TrimSpace(text))
	n.logger.Debug().Str("heard", text).Int("samples", len(samples)).Msg("listen done")
	return text, nil
}

// Speak reads text aloud.
func (n *Narrator) Speak(ctx context.Context, text string) error {
	if n.speaker == nil {
		return errors.New("no speaker configured")
	}
	return n.speaker.Say(ctx, text)
}

// Close releases the recognition engine.
func (n *Narrator) Close() error {
	if n.engine == nil {
		return nil
	}
	return n.engine.Close()
}
