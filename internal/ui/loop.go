package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	// ErrLoopClosed is returned by Call once the loop stopped accepting work.
	ErrLoopClosed = errors.New("control loop closed")
	// ErrFaulted is returned by Call when the posted function panicked.
	ErrFaulted = errors.New("control loop handler panicked")
)

// Loop is a single goroutine draining a FIFO queue of closures. Post never
// blocks, so a closure running on the loop may post more work.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}

	running atomic.Bool
	logger  zerolog.Logger

	faultMu sync.RWMutex
	onFault func(recovered any)
}

func NewLoop(logger zerolog.Logger) *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "ui.loop").Logger(),
	}
}

// SetFaultHandler installs the function called, on the loop, after a posted
// closure panics.
func (l *Loop) SetFaultHandler(fn func(recovered any)) {
	l.faultMu.Lock()
	l.onFault = fn
	l.faultMu.Unlock()
}

// Post queues fn. It reports false after Stop or once Run returned.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
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

// Call runs fn on the loop and waits for it to finish or for ctx. It must
// not be called from the loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan bool, 1)
	ok := l.Post(func() {
		completed := false
		defer func() { finished <- completed }()
		fn()
		completed = true
	})
	if !ok {
		return ErrLoopClosed
	}
	select {
	case completed := <-finished:
		if !completed {
			return ErrFaulted
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether Run is draining the queue.
func (l *Loop) Running() bool { return l.running.Load() }

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Stop refuses further posts. Run drains what is already queued and returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done or Stop is called. Queued closures
// still run before Run returns. Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	l.running.Store(true)
	defer func() {
		l.running.Store(false)
		close(l.done)
	}()
	l.logger.Debug().Msg("control loop started")
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			closed := l.closed
			l.mu.Unlock()
			if closed {
				l.logger.Debug().Msg("control loop stopped")
				return nil
			}
			select {
			case <-l.wake:
			case <-ctx.Done():
				l.Stop()
			}
			continue
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		l.dispatch(fn)
	}
}

// dispatch is the fault barrier: a panic in fn is logged and handed to the
// fault handler, and the loop keeps going.
func (l *Loop) dispatch(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		l.logger.Error().Interface("panic", r).Msg("recovered panic on control loop")
		l.faultMu.RLock()
		h := l.onFault
		l.faultMu.RUnlock()
		if h == nil {
			return
		}
		defer func() {
			if r2 := recover(); r2 != nil {
				l.logger.Error().Str("panic", fmt.Sprint(r2)).Msg("fault handler panicked")
			}
		}()
		h(r)
	}()
	fn()
}
