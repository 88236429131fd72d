package ui

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/SpideyPotter/InsightEye/internal/dispatch"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// Starter starts runs. *dispatch.Dispatcher implements it.
type Starter interface {
	Start(req pipeline.Request) (*dispatch.Handle, error)
}

// Controller maps the three interface actions onto the dispatcher, always
// from the control loop.
type Controller struct {
	loop    *Loop
	screen  *Screen
	starter Starter
}

func NewController(loop *Loop, screen *Screen, starter Starter) *Controller {
	return &Controller{loop: loop, screen: screen, starter: starter}
}

// Trigger runs req on the loop: the screen is prepared, the dispatcher
// started, and a start failure is rendered like any other error. It returns
// the new handle id.
//
// If ctx ends before the loop reaches the request, the request is dropped and
// ctx's error returned. Once the loop has begun starting the run, Trigger
// waits for it and reports the run instead.
func (c *Controller) Trigger(ctx context.Context, req pipeline.Request) (string, error) {
	var (
		id       string
		startErr error
		// taken by whichever side decides first: the loop or a caller giving up
		claimed  atomic.Bool
		finished = make(chan struct{})
	)
	err := c.loop.Call(ctx, func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(finished)
		c.screen.Prepare(req)
		h, err := c.starter.Start(req)
		if err != nil {
			startErr = err
			msg, kind := err.Error(), pipeline.KindWorkerStartFailed
			var pe *pipeline.Error
			if errors.As(err, &pe) {
				msg, kind = pe.Display(), pe.Kind
			}
			c.screen.ShowError(msg, kind)
			return
		}
		id = h.ID()
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		if claimed.CompareAndSwap(false, true) {
			return "", err
		}
		<-finished
		if id == "" && startErr == nil {
			return "", ErrFaulted
		}
		return id, startErr
	}
	if err != nil {
		return "", err
	}
	return id, startErr
}

func (c *Controller) Voice(ctx context.Context) (string, error) {
	return c.Trigger(ctx, pipeline.Request{Mode: pipeline.ModeVoice})
}

func (c *Controller) Webcam(ctx context.Context) (string, error) {
	return c.Trigger(ctx, pipeline.Request{Mode: pipeline.ModeWebcam})
}

func (c *Controller) Upload(ctx context.Context, path string) (string, error) {
	return c.Trigger(ctx, pipeline.Request{Mode: pipeline.ModeUpload, Path: path})
}
