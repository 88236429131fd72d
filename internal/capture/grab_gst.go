//go:build gst

package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tinyzimmer/go-gst/gst"
)

var gstInit sync.Once

// GstGrabber runs a short-lived v4l2src pipeline per capture. multifilesink
// rewrites the same file for every buffer, so the last frame written is the
// one after the warm-up frames.
type GstGrabber struct {
	logger zerolog.Logger
}

// NewDefaultGrabber returns the grabber compiled into this build.
func NewDefaultGrabber(_ string, logger zerolog.Logger) Grabber {
	gstInit.Do(func() { gst.Init(nil) })
	return &GstGrabber{logger: logger}
}

func (g *GstGrabber) Name() string { return "gstreamer" }

func (g *GstGrabber) Grab(ctx context.Context, device string, warmup int, dst string) error {
	desc := fmt.Sprintf(
		"v4l2src device=%s num-buffers=%d ! videoconvert ! jpegenc quality=90 ! multifilesink location=%s",
		device, warmup+1, dst,
	)
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return fmt.Errorf("gstreamer pipeline: %w", err)
	}
	defer func() {
		if err := pipeline.SetState(gst.StateNull); err != nil {
			g.logger.Debug().Err(err).Msg("gstreamer stop")
		}
	}()
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gstreamer start: %w", err)
	}

	bus := pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			return nil
		case gst.MessageError:
			gerr := msg.ParseError()
			g.logger.Debug().Str("debug", gerr.DebugString()).Str("device", device).Msg("gstreamer error")
			return fmt.Errorf("gstreamer: %s", gerr.Error())
		}
	}
}
