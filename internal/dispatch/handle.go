package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// State is the lifecycle position of a Handle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// isValidTransition encodes Idle -> Running -> {Completed, Failed} -> Disposed.
func isValidTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateRunning
	case StateRunning:
		return to == StateCompleted || to == StateFailed
	case StateCompleted, StateFailed:
		return to == StateDisposed
	}
	return false
}

type invalidTransitionError struct{ from, to State }

func (e invalidTransitionError) Error() string {
	return fmt.Sprintf("invalid handle transition %s -> %s", e.from, e.to)
}

// Handle is one in-flight or finished run. Only the Dispatcher changes it;
// callers get read access.
type Handle struct {
	id      string
	mode    pipeline.Mode
	created time.Time

	mu     sync.Mutex
	state  State
	result pipeline.Result
	// superseded is set when the dispatcher gave up on the run.
	superseded bool

	// stop is closed when the dispatcher supersedes the run.
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

func newHandle(mode pipeline.Mode) *Handle {
	return &Handle{
		id:      uuid.NewString(),
		mode:    mode,
		created: time.Now(),
		state:   StateIdle,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (h *Handle) ID() string          { return h.id }
func (h *Handle) Mode() pipeline.Mode { return h.mode }
func (h *Handle) Created() time.Time  { return h.created }

// Done is closed when the worker goroutine returns.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Result is the worker's Result, valid once Done is closed.
func (h *Handle) Result() pipeline.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func (h *Handle) transitionLocked(to State) error {
	if !isValidTransition(h.state, to) {
		return invalidTransitionError{from: h.state, to: to}
	}
	h.state = to
	return nil
}

func (h *Handle) transition(to State) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transitionLocked(to)
}

// finish records the worker's Result. A handle the dispatcher already gave up
// on keeps its Failed(Superseded) or Disposed state.
func (h *Handle) finish(res pipeline.Result) {
	h.mu.Lock()
	if h.state == StateRunning {
		h.result = res
		if res.Failed() {
			h.state = StateFailed
		} else {
			h.state = StateCompleted
		}
	}
	h.mu.Unlock()
	h.doneOnce.Do(func() { close(h.done) })
}

// requestStop asks the worker to end after its current stage.
func (h *Handle) requestStop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// abandon drives the handle to Disposed without waiting for its worker. A
// still-running handle passes through Failed(Superseded) on the way.
func (h *Handle) abandon() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.superseded = true
	if h.state == StateRunning {
		_ = h.transitionLocked(StateFailed)
		h.result = pipeline.Result{
			Mode: h.mode,
			Err:  pipeline.NewError(pipeline.KindSuperseded, pipeline.StageAcquire, "run superseded by a newer request", nil),
		}
	}
	if h.state == StateCompleted || h.state == StateFailed {
		_ = h.transitionLocked(StateDisposed)
	}
}

// Superseded reports whether the dispatcher replaced this run.
func (h *Handle) Superseded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.superseded
}
