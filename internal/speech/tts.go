package speech

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SpideyPotter/InsightEye/internal/common/execx"
)

// Defaults for the espeak-ng voice.
const (
	DefaultTTSBin = "espeak-ng"
	DefaultRate   = 150
	DefaultVolume = 100
)

// Speaker reads text aloud and returns once it has been spoken.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// EspeakSpeaker speaks through espeak-ng. Volume is a percentage; espeak's
// amplitude scale is 0..200 with 100 as its default.
type EspeakSpeaker struct {
	bin    string
	rate   int
	volume int
	runner execx.Runner
}

func NewEspeakSpeaker(bin string, rate, volume int) *EspeakSpeaker {
	if bin == "" {
		bin = DefaultTTSBin
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	if volume <= 0 {
		volume = DefaultVolume
	}
	return &EspeakSpeaker{bin: bin, rate: rate, volume: volume, runner: execx.ExecRunner{}}
}

func (s *EspeakSpeaker) Say(ctx context.Context, text string) error {
	if _, err := s.runner.Run(ctx, s.bin, s.args(text)...); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

func (s *EspeakSpeaker) args(text string) []string {
	amp := s.volume
	if amp > 200 {
		amp = 200
	}
	return []string{"-s", strconv.Itoa(s.rate), "-a", strconv.Itoa(amp), "--", text}
}
