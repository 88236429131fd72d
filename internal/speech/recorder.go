package speech

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/SpideyPotter/InsightEye/internal/common/execx"
)

// DefaultRecorderBin records from the default ALSA capture device.
const DefaultRecorderBin = "arecord"

// Recorder writes up to d of microphone audio to dst as a 16 kHz mono WAV.
type Recorder interface {
	Record(ctx context.Context, d time.Duration, dst string) error
}

// ArecordRecorder records with alsa-utils arecord.
type ArecordRecorder struct {
	bin    string
	runner execx.Runner
}

func NewArecordRecorder(bin string) *ArecordRecorder {
	if bin == "" {
		bin = DefaultRecorderBin
	}
	return &ArecordRecorder{bin: bin, runner: execx.ExecRunner{}}
}

func (r *ArecordRecorder) Record(ctx context.Context, d time.Duration, dst string) error {
	if _, err := r.runner.Run(ctx, r.bin, arecordArgs(d, dst)...); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}

func arecordArgs(d time.Duration, dst string) []string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return []string{
		"-q",
		"-f", "S16_LE",
		"-r", strconv.Itoa(SampleRate),
		"-c", "1",
		"-t", "wav",
		"-d", strconv.Itoa(secs),
		dst,
	}
}
