package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultListenTimeout bounds how long a voice run waits for a command.
const DefaultListenTimeout = 5 * time.Second

// Observer receives per-stage timings. err is nil when the stage succeeded.
type Observer interface {
	ObserveStage(stage Stage, d time.Duration, err *Error)
}

type noopObserver struct{}

func (noopObserver) ObserveStage(Stage, time.Duration, *Error) {}

// Worker runs the acquire, preprocess, infer and narrate stages in order.
// A Worker holds no per-run state and may be reused across runs.
type Worker struct {
	acquirer      Acquirer
	captioner     Captioner
	narrator      Narrator
	listenTimeout time.Duration
	logger        zerolog.Logger
	observer      Observer
}

// Option configures a Worker.
type Option func(*Worker)

// WithListenTimeout overrides DefaultListenTimeout.
func WithListenTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.listenTimeout = d
		}
	}
}

// WithLogger sets the logger used for stage progress.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithObserver installs a stage timing observer.
func WithObserver(o Observer) Option {
	return func(w *Worker) {
		if o != nil {
			w.observer = o
		}
	}
}

// NewWorker wires the external collaborators. narrator may be nil, in which
// case voice runs fail with NoCommand and captions are not spoken.
func NewWorker(a Acquirer, c Captioner, n Narrator, opts ...Option) *Worker {
	w := &Worker{
		acquirer:      a,
		captioner:     c,
		narrator:      n,
		listenTimeout: DefaultListenTimeout,
		logger:        zerolog.Nop(),
		observer:      noopObserver{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes one request to completion. It always returns a Result; a panic
// in any stage is recovered into a failure of that stage's kind. The first
// failing stage ends the run and later stages are not called.
//
// ctx is passed to the collaborators as is; canceling it aborts the call in
// flight. Supersession goes through req.Stop instead: once it is closed no
// further stage starts and the run ends as KindSuperseded.
func (w *Worker) Run(ctx context.Context, req Request) (res Result) {
	res.Mode = req.Mode
	stage := StageAcquire
	started := time.Now()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		w.logger.Error().Str("stage", string(stage)).Interface("panic", r).Msg("pipeline stage panicked")
		perr := NewError(stageFailureKind(stage), stage, "unexpected failure", fmt.Errorf("panic: %v", r))
		w.observer.ObserveStage(stage, time.Since(started), perr)
		if stage == StageNarrate {
			res.Narrated = false
			return
		}
		res.Output = ""
		res.Err = perr
	}()

	if !req.Mode.Valid() {
		res.Err = NewError(KindWorkerStartFailed, StageAcquire, fmt.Sprintf("unsupported mode %q", req.Mode), nil)
		return res
	}

	w.logger.Debug().Str("mode", string(req.Mode)).Msg("run start")

	var path string
	started = time.Now()
	path, res.Err = w.acquire(ctx, req)
	w.observer.ObserveStage(stage, time.Since(started), res.Err)
	if res.Err != nil {
		return res
	}
	if req.stopped() {
		return superseded(res, stage)
	}

	stage = StagePreprocess
	var img image.Image
	started = time.Now()
	img, res.ImagePath, res.Err = w.preprocess(path)
	w.observer.ObserveStage(stage, time.Since(started), res.Err)
	if res.Err != nil {
		return res
	}
	if req.stopped() {
		return superseded(res, stage)
	}

	stage = StageInfer
	var caption string
	started = time.Now()
	caption, res.Err = w.infer(ctx, img)
	w.observer.ObserveStage(stage, time.Since(started), res.Err)
	if res.Err != nil {
		return res
	}
	res.Output = caption
	w.logger.Info().Str("mode", string(req.Mode)).Str("image", res.ImagePath).Str("caption", caption).Msg("caption generated")
	if req.stopped() {
		// a stale caption is never read aloud
		return superseded(res, stage)
	}

	stage = StageNarrate
	started = time.Now()
	nerr := w.narrate(ctx, caption)
	w.observer.ObserveStage(stage, time.Since(started), nerr)
	if nerr != nil {
		w.logger.Warn().Err(nerr).Str("kind", string(nerr.Kind)).Msg("caption not spoken")
	} else {
		res.Narrated = w.narrator != nil
	}
	return res
}

func superseded(res Result, after Stage) Result {
	res.Output = ""
	res.Err = NewError(KindSuperseded, after, "run superseded by a newer request", nil)
	return res
}

func (w *Worker) acquire(ctx context.Context, req Request) (string, *Error) {
	switch req.Mode {
	case ModeUpload:
		return req.Path, nil
	case ModeWebcam:
		return w.capture(ctx)
	}

	// voice
	if w.narrator == nil {
		return "", NewError(KindNoCommand, StageAcquire, "voice commands are not available", nil)
	}
	heard, err := w.narrator.Listen(ctx, w.listenTimeout)
	if err != nil {
		w.logger.Debug().Err(err).Msg("listen failed")
	}
	cmd := normalizeCommand(heard)
	if cmd == "" {
		return "", NewError(KindNoCommand, StageAcquire, "no voice command heard", err)
	}
	w.logger.Info().Str("command", cmd).Msg("voice command")
	if !MatchesCaptureIntent(cmd) {
		return "", NewError(KindUnrecognizedCommand, StageAcquire,
			fmt.Sprintf("command %q not recognized, say \"take picture\" or \"click picture\"", cmd), nil)
	}
	return w.capture(ctx)
}

func (w *Worker) capture(ctx context.Context) (string, *Error) {
	path, err := w.acquirer.Capture(ctx)
	if err != nil || path == "" {
		return "", NewError(KindCaptureFailed, StageAcquire, "could not capture an image from the webcam", err)
	}
	return path, nil
}

func (w *Worker) preprocess(path string) (image.Image, string, *Error) {
	if strings.TrimSpace(path) == "" {
		return nil, "", NewError(KindInvalidImage, StagePreprocess, "no image path was given", nil)
	}
	img, abs, err := w.acquirer.Resolve(path)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			return nil, "", NewError(KindInvalidImage, StagePreprocess, "invalid image file "+path, err)
		}
		return nil, "", NewError(KindDecodeFailed, StagePreprocess, "failed to read image "+path, err)
	}
	if img == nil {
		return nil, "", NewError(KindDecodeFailed, StagePreprocess, "failed to read image "+path, nil)
	}
	return img, abs, nil
}

func (w *Worker) infer(ctx context.Context, img image.Image) (string, *Error) {
	text, err := w.captioner.Caption(ctx, img, Decoding())
	if err != nil {
		return "", NewError(KindInferenceFailed, StageInfer, "caption generation failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewError(KindInferenceFailed, StageInfer, "caption generation returned no text", nil)
	}
	return text, nil
}

func (w *Worker) narrate(ctx context.Context, caption string) *Error {
	if w.narrator == nil {
		return nil
	}
	if err := w.narrator.Speak(ctx, caption); err != nil {
		return NewError(KindNarrationFailed, StageNarrate, "could not read the caption aloud", err)
	}
	return nil
}
