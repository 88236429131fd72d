package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultJoinTimeout = time.Second
)

// Runner executes one request to completion. *pipeline.Worker implements it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Interface is the foreground side. Both methods are only ever called on the
// control loop.
type Interface interface {
	// SetBusy disables input while h runs.
	SetBusy(h *Handle)
	// Deliver renders the Result of the current handle and restores idle.
	Deliver(h *Handle, res pipeline.Result)
}

// Marshaler queues fn onto the control loop. It reports false once the loop
// no longer accepts work. Post must not block.
type Marshaler interface {
	Post(fn func()) bool
}

// Config encapsulates all tunables for Dispatcher construction.
type Config struct {
	Runner    Runner
	Interface Interface
	Loop      Marshaler
	// JoinTimeout bounds how long Start waits for a superseded run.
	JoinTimeout time.Duration
	Logger      zerolog.Logger
	Publisher   EventPublisher
	// BaseContext parents every run context. Defaults to Background.
	BaseContext context.Context
}
