package pipeline

import (
	"context"
	"image"
	"sync"
	"time"
)

// fakeAcquirer captures to a fixed path and resolves any path to a 2x2 image.
type fakeAcquirer struct {
	mu          sync.Mutex
	capturePath string
	captureErr  error
	resolveErr  error
	captures    int
	resolved    []string
	panicOn     Stage
}

func (f *fakeAcquirer) Capture(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.panicOn == StageAcquire {
		panic("camera exploded")
	}
	return f.capturePath, f.captureErr
}

func (f *fakeAcquirer) Resolve(path string) (image.Image, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, path)
	if f.panicOn == StagePreprocess {
		panic("decoder exploded")
	}
	if f.resolveErr != nil {
		return nil, "", f.resolveErr
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), "/abs/" + path, nil
}

func (f *fakeAcquirer) captureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

// fakeCaptioner returns a fixed caption and records the parameters it saw.
type fakeCaptioner struct {
	mu      sync.Mutex
	caption string
	err     error
	calls   int
	params  DecodingParams
	panics  bool
}

func (f *fakeCaptioner) Caption(ctx context.Context, img image.Image, p DecodingParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.params = p
	if f.panics {
		panic("model exploded")
	}
	return f.caption, f.err
}

func (f *fakeCaptioner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeNarrator hears a fixed command and records spoken text.
type fakeNarrator struct {
	mu         sync.Mutex
	heard      string
	listenErr  error
	speakErr   error
	spoken     []string
	timeout    time.Duration
	panicSpeak bool
}

func (f *fakeNarrator) Listen(ctx context.Context, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = timeout
	return f.heard, f.listenErr
}

func (f *fakeNarrator) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicSpeak {
		panic("speaker exploded")
	}
	f.spoken = append(f.spoken, text)
	return f.speakErr
}

func (f *fakeNarrator) spokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken)
}

// recordingObserver keeps the stages it was told about.
type recordingObserver struct {
	mu     sync.Mutex
	stages []Stage
	kinds  []Kind
}

func (o *recordingObserver) ObserveStage(s Stage, d time.Duration, err *Error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, s)
	if err != nil {
		o.kinds = append(o.kinds, err.Kind)
	}
}
