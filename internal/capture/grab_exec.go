//go:build !gst

package capture

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/common/execx"
)

// DefaultFFmpegBin is used when no binary is configured.
const DefaultFFmpegBin = "ffmpeg"

// FFmpegGrabber reads V4L2 devices through the ffmpeg CLI.
type FFmpegGrabber struct {
	bin    string
	runner execx.Runner
	logger zerolog.Logger
}

// NewDefaultGrabber returns the grabber compiled into this build.
func NewDefaultGrabber(ffmpegBin string, logger zerolog.Logger) Grabber {
	if ffmpegBin == "" {
		ffmpegBin = DefaultFFmpegBin
	}
	return &FFmpegGrabber{bin: ffmpegBin, runner: execx.ExecRunner{}, logger: logger}
}

func (g *FFmpegGrabber) Name() string { return "ffmpeg" }

func (g *FFmpegGrabber) Grab(ctx context.Context, device string, warmup int, dst string) error {
	_, err := g.runner.Run(ctx, g.bin, ffmpegArgs(device, warmup, dst)...)
	if err != nil {
		return fmt.Errorf("ffmpeg grab: %w", err)
	}
	return nil
}

// ffmpegArgs keeps frame number warmup, i.e. the first warmup frames are dropped.
func ffmpegArgs(device string, warmup int, dst string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-f", "v4l2", "-i", device,
		"-vf", "select=gte(n\\," + strconv.Itoa(warmup) + ")",
		"-frames:v", "1",
		"-q:v", "2",
		dst,
	}
}
