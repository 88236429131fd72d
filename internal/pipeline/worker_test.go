package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"
	"time"
)

func TestRun_UploadCaptionsAndSpeaks(t *testing.T) {
	acq := &fakeAcquirer{}
	capr := &fakeCaptioner{caption: "  a dog running on grass \n"}
	nar := &fakeNarrator{}
	w := NewWorker(acq, capr, nar)

	res := w.Run(context.Background(), Request{Mode: ModeUpload, Path: "dog.jpg"})
	if res.Failed() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.Output != "a dog running on grass" {
		t.Fatalf("output = %q", res.Output)
	}
	if res.ImagePath != "/abs/dog.jpg" {
		t.Fatalf("image path = %q", res.ImagePath)
	}
	if !res.Narrated || nar.spokenCount() != 1 || nar.spoken[0] != res.Output {
		t.Fatalf("expected caption spoken once, got %v", nar.spoken)
	}
	if acq.captureCount() != 0 {
		t.Fatalf("upload must not capture")
	}
	if capr.params != Decoding() {
		t.Fatalf("decoding params = %+v", capr.params)
	}
}

func TestDecoding_FixedParameters(t *testing.T) {
	p := Decoding()
	if p.NumBeams != 4 || p.MaxLength != 16 || p.NoRepeatNGramSize != 2 || !p.EarlyStopping {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestRun_UploadTwiceIsDeterministic(t *testing.T) {
	w := NewWorker(&fakeAcquirer{}, &fakeCaptioner{caption: "a red bicycle"}, nil)
	a := w.Run(context.Background(), Request{Mode: ModeUpload, Path: "p.png"})
	b := w.Run(context.Background(), Request{Mode: ModeUpload, Path: "p.png"})
	if a.Output != b.Output || a.Failed() || b.Failed() {
		t.Fatalf("runs differ: %+v vs %+v", a, b)
	}
	if a.Narrated {
		t.Fatalf("no narrator, Narrated must be false")
	}
}

func TestRun_ShortCircuit(t *testing.T) {
	cases := []struct {
		name     string
		req      Request
		acq      *fakeAcquirer
		capr     *fakeCaptioner
		nar      *fakeNarrator
		want     Kind
		captions int
	}{
		{
			name: "voice nothing heard",
			req:  Request{Mode: ModeVoice},
			acq:  &fakeAcquirer{capturePath: "x.jpg"},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{},
			want: KindNoCommand,
		},
		{
			name: "voice listen error",
			req:  Request{Mode: ModeVoice},
			acq:  &fakeAcquirer{capturePath: "x.jpg"},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{listenErr: errors.New("mic unplugged")},
			want: KindNoCommand,
		},
		{
			name: "voice unrecognized",
			req:  Request{Mode: ModeVoice},
			acq:  &fakeAcquirer{capturePath: "x.jpg"},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{heard: "what time is it"},
			want: KindUnrecognizedCommand,
		},
		{
			name: "webcam no frame",
			req:  Request{Mode: ModeWebcam},
			acq:  &fakeAcquirer{},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{},
			want: KindCaptureFailed,
		},
		{
			name: "webcam error",
			req:  Request{Mode: ModeWebcam},
			acq:  &fakeAcquirer{capturePath: "x.jpg", captureErr: errors.New("busy")},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{},
			want: KindCaptureFailed,
		},
		{
			name: "upload empty path",
			req:  Request{Mode: ModeUpload, Path: "  "},
			acq:  &fakeAcquirer{},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{},
			want: KindInvalidImage,
		},
		{
			name: "upload invalid file",
			req:  Request{Mode: ModeUpload, Path: "notes.txt"},
			acq:  &fakeAcquirer{resolveErr: fmt.Errorf("%w: text/plain", ErrInvalidImage)},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{},
			want: KindInvalidImage,
		},
		{
			name: "upload corrupt file",
			req:  Request{Mode: ModeUpload, Path: "broken.jpg"},
			acq:  &fakeAcquirer{resolveErr: fmt.Errorf("%w: unexpected EOF", ErrDecodeFailed)},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{},
			want: KindDecodeFailed,
		},
		{
			name:     "caption error",
			req:      Request{Mode: ModeUpload, Path: "a.jpg"},
			acq:      &fakeAcquirer{},
			capr:     &fakeCaptioner{err: errors.New("model offline")},
			nar:      &fakeNarrator{},
			want:     KindInferenceFailed,
			captions: 1,
		},
		{
			name:     "empty caption",
			req:      Request{Mode: ModeUpload, Path: "a.jpg"},
			acq:      &fakeAcquirer{},
			capr:     &fakeCaptioner{caption: " \n"},
			nar:      &fakeNarrator{},
			want:     KindInferenceFailed,
			captions: 1,
		},
		{
			name: "unknown mode",
			req:  Request{Mode: Mode("telepathy")},
			acq:  &fakeAcquirer{},
			capr: &fakeCaptioner{caption: "c"},
			nar:  &fakeNarrator{},
			want: KindWorkerStartFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := NewWorker(tc.acq, tc.capr, tc.nar).Run(context.Background(), tc.req)
			if !res.Failed() {
				t.Fatalf("expected failure, got %+v", res)
			}
			if res.Err.Kind != tc.want {
				t.Fatalf("kind = %s, want %s (%v)", res.Err.Kind, tc.want, res.Err)
			}
			if res.Output != "" {
				t.Fatalf("failed result carries output %q", res.Output)
			}
			if got := tc.capr.callCount(); got != tc.captions {
				t.Fatalf("caption calls = %d, want %d", got, tc.captions)
			}
			if tc.nar.spokenCount() != 0 {
				t.Fatalf("speak must not run after a failure")
			}
		})
	}
}

func TestRun_WebcamNoFrameSkipsLaterStages(t *testing.T) {
	acq := &fakeAcquirer{}
	capr := &fakeCaptioner{caption: "c"}
	nar := &fakeNarrator{}
	res := NewWorker(acq, capr, nar).Run(context.Background(), Request{Mode: ModeWebcam})
	if KindOf(res.Err) != KindCaptureFailed {
		t.Fatalf("kind = %v", KindOf(res.Err))
	}
	if len(acq.resolved) != 0 || capr.callCount() != 0 || nar.spokenCount() != 0 {
		t.Fatalf("later stages ran: resolve=%d caption=%d speak=%d", len(acq.resolved), capr.callCount(), nar.spokenCount())
	}
}

func TestRun_VoiceCommandCaptures(t *testing.T) {
	acq := &fakeAcquirer{capturePath: "captured_image_1.jpg"}
	nar := &fakeNarrator{heard: "Please  TAKE picture now"}
	w := NewWorker(acq, &fakeCaptioner{caption: "a cat"}, nar, WithListenTimeout(2*time.Second))
	res := w.Run(context.Background(), Request{Mode: ModeVoice})
	if res.Failed() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if acq.captureCount() != 1 {
		t.Fatalf("expected one capture, got %d", acq.captureCount())
	}
	if nar.timeout != 2*time.Second {
		t.Fatalf("listen timeout = %s", nar.timeout)
	}
}

func TestRun_NarrationFailureKeepsResult(t *testing.T) {
	nar := &fakeNarrator{speakErr: errors.New("no audio device")}
	obs := &recordingObserver{}
	w := NewWorker(&fakeAcquirer{}, &fakeCaptioner{caption: "a boat"}, nar, WithObserver(obs))
	res := w.Run(context.Background(), Request{Mode: ModeUpload, Path: "b.jpg"})
	if res.Failed() {
		t.Fatalf("narration failure downgraded the result: %v", res.Err)
	}
	if res.Output != "a boat" || res.Narrated {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(obs.kinds) != 1 || obs.kinds[0] != KindNarrationFailed {
		t.Fatalf("observer kinds = %v", obs.kinds)
	}
	if len(obs.stages) != 4 {
		t.Fatalf("observer stages = %v", obs.stages)
	}
}

func TestRun_PanicsBecomeStageFailures(t *testing.T) {
	t.Run("acquire", func(t *testing.T) {
		res := NewWorker(&fakeAcquirer{panicOn: StageAcquire}, &fakeCaptioner{caption: "c"}, nil).
			Run(context.Background(), Request{Mode: ModeWebcam})
		if KindOf(res.Err) != KindCaptureFailed {
			t.Fatalf("kind = %v", KindOf(res.Err))
		}
	})
	t.Run("preprocess", func(t *testing.T) {
		res := NewWorker(&fakeAcquirer{panicOn: StagePreprocess}, &fakeCaptioner{caption: "c"}, nil).
			Run(context.Background(), Request{Mode: ModeUpload, Path: "a.jpg"})
		if KindOf(res.Err) != KindDecodeFailed {
			t.Fatalf("kind = %v", KindOf(res.Err))
		}
	})
	t.Run("infer", func(t *testing.T) {
		res := NewWorker(&fakeAcquirer{}, &fakeCaptioner{panics: true}, nil).
			Run(context.Background(), Request{Mode: ModeUpload, Path: "a.jpg"})
		if KindOf(res.Err) != KindInferenceFailed || res.Output != "" {
			t.Fatalf("result = %+v", res)
		}
	})
	t.Run("narrate", func(t *testing.T) {
		res := NewWorker(&fakeAcquirer{}, &fakeCaptioner{caption: "a kite"}, &fakeNarrator{panicSpeak: true}).
			Run(context.Background(), Request{Mode: ModeUpload, Path: "a.jpg"})
		if res.Failed() || res.Output != "a kite" || res.Narrated {
			t.Fatalf("result = %+v", res)
		}
	})
}

func TestRun_VoiceWithoutNarrator(t *testing.T) {
	res := NewWorker(&fakeAcquirer{capturePath: "x.jpg"}, &fakeCaptioner{caption: "c"}, nil).
		Run(context.Background(), Request{Mode: ModeVoice})
	if KindOf(res.Err) != KindNoCommand {
		t.Fatalf("kind = %v", KindOf(res.Err))
	}
}

// blockingAcquirer holds Capture until release is closed and ignores ctx.
type blockingAcquirer struct {
	fakeAcquirer
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAcquirer) Capture(ctx context.Context) (string, error) {
	close(b.entered)
	<-b.release
	return "shot.jpg", ctx.Err()
}

func TestRun_StopEndsRunAfterCurrentStage(t *testing.T) {
	acq := &blockingAcquirer{entered: make(chan struct{}), release: make(chan struct{})}
	capr := &fakeCaptioner{caption: "a stale caption"}
	nar := &fakeNarrator{}
	w := NewWorker(acq, capr, nar)

	stop := make(chan struct{})
	done := make(chan Result, 1)
	go func() { done <- w.Run(context.Background(), Request{Mode: ModeWebcam, Stop: stop}) }()

	<-acq.entered
	close(stop)
	close(acq.release)
	res := <-done
	if KindOf(res.Err) != KindSuperseded || res.Output != "" {
		t.Fatalf("result = %+v", res)
	}
	if capr.callCount() != 0 || nar.spokenCount() != 0 {
		t.Fatalf("later stages ran: caption=%d speak=%d", capr.callCount(), nar.spokenCount())
	}
}

func TestRun_StopAfterCaptionSkipsNarration(t *testing.T) {
	stop := make(chan struct{})
	capr := &stopOnCaption{fakeCaptioner: fakeCaptioner{caption: "a cat"}, stop: stop}
	nar := &fakeNarrator{}
	res := NewWorker(&fakeAcquirer{}, capr, nar).Run(context.Background(),
		Request{Mode: ModeUpload, Path: "cat.jpg", Stop: stop})
	if KindOf(res.Err) != KindSuperseded {
		t.Fatalf("kind = %v", KindOf(res.Err))
	}
	if nar.spokenCount() != 0 {
		t.Fatalf("stale caption spoken")
	}
}

// stopOnCaption closes stop while the caption is being generated.
type stopOnCaption struct {
	fakeCaptioner
	stop chan struct{}
}

func (s *stopOnCaption) Caption(ctx context.Context, img image.Image, p DecodingParams) (string, error) {
	close(s.stop)
	return s.fakeCaptioner.Caption(ctx, img, p)
}
