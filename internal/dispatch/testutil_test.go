package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// testLoop is a minimal control loop: one goroutine draining an unbounded queue.
type testLoop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	done    chan struct{}
}

func newTestLoop(t *testing.T) *testLoop {
	t.Helper()
	l := &testLoop{wake: make(chan struct{}, 1), done: make(chan struct{})}
	go l.run()
	t.Cleanup(l.stop)
	return l
}

func (l *testLoop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *testLoop) run() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			stopped := l.stopped
			l.mu.Unlock()
			if stopped {
				close(l.done)
				return
			}
			<-l.wake
			continue
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
	}
}

func (l *testLoop) stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

// closedLoop refuses all work.
type closedLoop struct{}

func (closedLoop) Post(func()) bool { return false }

type delivery struct {
	h   *Handle
	res pipeline.Result
	// state observed while Deliver ran
	state State
}

// fakeUI records what the dispatcher asked the interface to do.
type fakeUI struct {
	mu        sync.Mutex
	busy      []string
	delivered []delivery
	ch        chan delivery
}

func newFakeUI() *fakeUI { return &fakeUI{ch: make(chan delivery, 32)} }

func (u *fakeUI) SetBusy(h *Handle) {
	u.mu.Lock()
	u.busy = append(u.busy, h.ID())
	u.mu.Unlock()
}

func (u *fakeUI) Deliver(h *Handle, res pipeline.Result) {
	d := delivery{h: h, res: res, state: h.State()}
	u.mu.Lock()
	u.delivered = append(u.delivered, d)
	u.mu.Unlock()
	u.ch <- d
}

func (u *fakeUI) deliveries() []delivery {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]delivery(nil), u.delivered...)
}

func (u *fakeUI) busyCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.busy)
}

func (u *fakeUI) waitDelivery(t *testing.T) delivery {
	t.Helper()
	select {
	case d := <-u.ch:
		return d
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for a delivery")
	}
	return delivery{}
}

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, req pipeline.Request) pipeline.Result

func (f runnerFunc) Run(ctx context.Context, req pipeline.Request) pipeline.Result { return f(ctx, req) }

// echoRunner captions uploads with their path. Every other mode blocks until
// the run is stopped or its context is canceled.
func echoRunner() Runner {
	return runnerFunc(func(ctx context.Context, req pipeline.Request) pipeline.Result {
		if req.Mode == pipeline.ModeUpload {
			return pipeline.Result{Mode: req.Mode, Output: "caption of " + req.Path}
		}
		select {
		case <-ctx.Done():
		case <-req.Stop:
		}
		return pipeline.Result{Mode: req.Mode, Err: pipeline.NewError(pipeline.KindCaptureFailed, pipeline.StageAcquire, "stopped", ctx.Err())}
	})
}

func newTestDispatcher(t *testing.T, r Runner, join time.Duration) (*Dispatcher, *fakeUI, *MemoryPublisher) {
	t.Helper()
	ui := newFakeUI()
	pub := NewMemoryPublisher()
	d := NewWithConfig(Config{
		Runner:      r,
		Interface:   ui,
		Loop:        newTestLoop(t),
		JoinTimeout: join,
		Publisher:   pub,
	})
	return d, ui, pub
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func hasEvent(p *MemoryPublisher, name, handleID string) bool {
	for _, e := range p.Events() {
		if e.Name == name && e.HandleID == handleID {
			return true
		}
	}
	return false
}
