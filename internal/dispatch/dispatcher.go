package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// Dispatcher owns the single current Handle.
type Dispatcher struct {
	runner      Runner
	ui          Interface
	loop        Marshaler
	joinTimeout time.Duration
	logger      zerolog.Logger
	baseCtx     context.Context
	// runCtx parents every run; it is canceled only by Close.
	runCtx   context.Context
	stopRuns context.CancelFunc

	pubMu sync.RWMutex
	pub   EventPublisher

	// startMu serializes Start and Close so supersession never interleaves.
	startMu sync.Mutex

	mu      sync.Mutex
	current *Handle
	closed  bool
}

// NewWithConfig constructs a Dispatcher from Config.
func NewWithConfig(cfg Config) *Dispatcher {
	d := &Dispatcher{
		runner:  cfg.Runner,
		ui:      cfg.Interface,
		loop:    cfg.Loop,
		logger:  cfg.Logger.With().Str("component", "dispatch").Logger(),
		baseCtx: cfg.BaseContext,
		pub:     cfg.Publisher,
	}
	if cfg.JoinTimeout <= 0 {
		d.joinTimeout = DefaultJoinTimeout
	} else {
		d.joinTimeout = cfg.JoinTimeout
	}
	if d.baseCtx == nil {
		d.baseCtx = context.Background()
	}
	if d.pub == nil {
		d.pub = noopPublisher{}
	}
	d.runCtx, d.stopRuns = context.WithCancel(d.baseCtx)
	return d
}

// SetEventPublisher installs p; nil restores the noop publisher.
func (d *Dispatcher) SetEventPublisher(p EventPublisher) {
	d.pubMu.Lock()
	defer d.pubMu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	d.pub = p
}

func (d *Dispatcher) publish(name string, h *Handle, fields map[string]any) {
	d.pubMu.RLock()
	p := d.pub
	d.pubMu.RUnlock()
	p.Publish(Event{Name: name, HandleID: h.ID(), Mode: string(h.Mode()), Fields: fields})
}

// Current returns the handle whose Result will be delivered next, or nil.
func (d *Dispatcher) Current() *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Start supersedes any current run and launches req on a new worker
// goroutine. The interface is switched to busy before the worker starts.
//
// When a run is still Running it is asked to stop after its current stage
// and joined for at most the join timeout; past that the old handle is
// abandoned and its eventual Result is dropped at delivery. Calls the old run
// has in flight are not interrupted.
func (d *Dispatcher) Start(req pipeline.Request) (*Handle, error) {
	if !req.Mode.Valid() {
		return nil, startFailed(fmt.Sprintf("unsupported mode %q", req.Mode), nil)
	}
	d.startMu.Lock()
	defer d.startMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	prev := d.current
	d.current = nil
	d.mu.Unlock()

	if prev != nil {
		d.supersede(prev)
	}

	h := newHandle(req.Mode)
	req.Stop = h.stop
	if err := h.transition(StateRunning); err != nil {
		return nil, startFailed("could not start worker", err)
	}
	if !d.loop.Post(func() { d.ui.SetBusy(h) }) {
		perr := startFailed("interface loop is not running", nil)
		h.finish(pipeline.Result{Mode: req.Mode, Err: perr})
		_ = h.transition(StateDisposed)
		return nil, perr
	}

	d.mu.Lock()
	d.current = h
	d.mu.Unlock()

	runsStarted.WithLabelValues(string(req.Mode)).Inc()
	busyGauge.Set(1)
	d.publish(EventRunStart, h, nil)
	d.logger.Info().Str("handle", h.ID()).Str("mode", string(req.Mode)).Msg("run start")

	go d.run(d.runCtx, h, req)
	return h, nil
}

func (d *Dispatcher) supersede(prev *Handle) {
	prev.requestStop()
	outcome := "joined"
	if prev.State() == StateRunning {
		timer := time.NewTimer(d.joinTimeout)
		select {
		case <-prev.Done():
		case <-timer.C:
			outcome = "abandoned"
		}
		timer.Stop()
	}
	prev.abandon()
	runsSuperseded.WithLabelValues(outcome).Inc()
	if outcome == "abandoned" {
		d.logger.Warn().Str("handle", prev.ID()).Dur("join_timeout", d.joinTimeout).Msg("superseded run did not stop in time; abandoned")
		d.publish(EventRunAbandoned, prev, map[string]any{"join_timeout": d.joinTimeout})
		return
	}
	d.logger.Info().Str("handle", prev.ID()).Msg("run superseded")
	d.publish(EventRunSuperseded, prev, nil)
}

func (d *Dispatcher) run(ctx context.Context, h *Handle, req pipeline.Request) {
	res := d.execute(ctx, req)
	h.finish(res)
	if !d.loop.Post(func() { d.deliver(h) }) {
		d.logger.Warn().Str("handle", h.ID()).Msg("control loop stopped; result dropped")
		d.mu.Lock()
		if d.current == h {
			d.current = nil
			busyGauge.Set(0)
		}
		d.mu.Unlock()
	}
}

// execute guards against runners that do not recover their own panics.
func (d *Dispatcher) execute(ctx context.Context, req pipeline.Request) (res pipeline.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("worker crashed")
			res = pipeline.Result{Mode: req.Mode, Err: startFailed("worker crashed", fmt.Errorf("panic: %v", r))}
		}
	}()
	return d.runner.Run(ctx, req)
}

// deliver runs on the control loop. Only the current handle's Result reaches
// the interface.
func (d *Dispatcher) deliver(h *Handle) {
	d.mu.Lock()
	if d.current != h {
		d.mu.Unlock()
		resultsStale.Inc()
		d.publish(EventResultStale, h, nil)
		d.logger.Warn().Str("handle", h.ID()).Msg("stale result dropped")
		return
	}
	d.current = nil
	d.mu.Unlock()

	res := h.Result()
	if err := h.transition(StateDisposed); err != nil {
		d.logger.Error().Err(err).Str("handle", h.ID()).Msg("dispose")
	}
	outcome := "completed"
	if res.Failed() {
		outcome = string(res.Err.Kind)
	}
	busyGauge.Set(0)
	resultsTotal.WithLabelValues(string(h.Mode()), outcome).Inc()
	d.publish(EventResultDelivered, h, map[string]any{"outcome": outcome})
	d.logger.Info().Str("handle", h.ID()).Str("outcome", outcome).Msg("result delivered")
	d.ui.Deliver(h, res)
}

// Close refuses further starts, cancels the context of every run still in
// flight and supersedes the current run, waiting at most the join timeout.
func (d *Dispatcher) Close() error {
	d.startMu.Lock()
	defer d.startMu.Unlock()
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	prev := d.current
	d.current = nil
	d.mu.Unlock()
	d.stopRuns()
	if prev != nil {
		d.supersede(prev)
	}
	busyGauge.Set(0)
	return nil
}
