package ui

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/dispatch"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
	"github.com/SpideyPotter/InsightEye/pkg/types"
)

// Texts shown by the Screen.
const (
	InfoListening = "Listening for voice command..."
	InfoUploading = "Generating caption for uploaded image..."
	InfoCapturing = "Capturing image from webcam..."
	InfoCompleted = "Operation completed."
	InfoFailed    = "An error occurred."
	BusyText      = "Processing... Please wait"
	StatusReady   = "Ready"
	errorPrefix   = "Error occurred:\n"
	statusMaxLen  = 50
)

// LatestFunc returns the most recent capture artifact.
type LatestFunc func() (string, error)

// Screen is the view model. Its mutating methods must run on the Loop; View,
// History and Subscribe are safe from any goroutine.
type Screen struct {
	mu      sync.RWMutex
	view    types.View
	history *History
	latest  LatestFunc
	logger  zerolog.Logger

	hookMu    sync.RWMutex
	onDeliver func(h *dispatch.Handle, res pipeline.Result)
}

// NewScreen creates an idle screen. latest may be nil, in which case webcam
// results show the captioned image path.
func NewScreen(history *History, latest LatestFunc, logger zerolog.Logger) *Screen {
	if history == nil {
		history = NewHistory(0)
	}
	s := &Screen{
		history: history,
		latest:  latest,
		logger:  logger.With().Str("component", "ui.screen").Logger(),
	}
	s.view = history.Append(types.View{Status: StatusReady})
	return s
}

// OnDeliver registers fn to be called, on the loop, after each delivered result.
func (s *Screen) OnDeliver(fn func(h *dispatch.Handle, res pipeline.Result)) {
	s.hookMu.Lock()
	s.onDeliver = fn
	s.hookMu.Unlock()
}

// View returns the current snapshot.
func (s *Screen) View() types.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Screen) History() *History { return s.history }

func (s *Screen) update(fn func(v *types.View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.view
	fn(&next)
	next.UpdatedAt = time.Time{}
	s.view = s.history.Append(next)
}

// Prepare shows what a request is about to do. Called right before Start.
func (s *Screen) Prepare(req pipeline.Request) {
	s.update(func(v *types.View) {
		v.Mode = string(req.Mode)
		v.Error = ""
		v.ErrorKind = ""
		v.Output = ""
		switch req.Mode {
		case pipeline.ModeVoice:
			v.Info = InfoListening
		case pipeline.ModeUpload:
			v.Info = InfoUploading
		case pipeline.ModeWebcam:
			v.Info = InfoCapturing
		}
	})
}

// SetBusy disables the run actions while h runs.
func (s *Screen) SetBusy(h *dispatch.Handle) {
	s.update(func(v *types.View) {
		v.Busy = true
		v.Mode = string(h.Mode())
		v.HandleID = h.ID()
		v.Output = BusyText
	})
}

// Deliver renders a result and restores idle.
func (s *Screen) Deliver(h *dispatch.Handle, res pipeline.Result) {
	image := s.displayImage(h.Mode(), res)
	s.update(func(v *types.View) {
		v.Busy = false
		v.HandleID = h.ID()
		v.Mode = string(h.Mode())
		// only the loader's resolved path or a capture on disk is shown
		v.ImagePath = image
		if res.Failed() {
			showError(v, res.Err.Display(), string(res.Err.Kind))
			return
		}
		v.Output = res.Output
		v.Error = ""
		v.ErrorKind = ""
		v.Info = InfoCompleted
		v.Status = StatusReady
	})
	s.hookMu.RLock()
	fn := s.onDeliver
	s.hookMu.RUnlock()
	if fn != nil {
		fn(h, res)
	}
}

// displayImage picks the image to show next to a result. Webcam runs show
// the newest capture on disk.
func (s *Screen) displayImage(mode pipeline.Mode, res pipeline.Result) string {
	if mode == pipeline.ModeWebcam && s.latest != nil {
		p, err := s.latest()
		if err == nil && p != "" {
			return p
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("latest capture")
		}
	}
	return res.ImagePath
}

// ShowError renders a failure that did not come from a run and restores idle.
func (s *Screen) ShowError(msg string, kind pipeline.Kind) {
	s.update(func(v *types.View) {
		v.Busy = false
		showError(v, msg, string(kind))
	})
}

// Fault is the control loop fault handler.
func (s *Screen) Fault(recovered any) {
	s.ShowError(fmt.Sprintf("unexpected error: %v", recovered), "")
}

func showError(v *types.View, msg, kind string) {
	v.Output = ""
	v.Error = errorPrefix + msg
	v.ErrorKind = kind
	v.Info = InfoFailed
	v.Status = StatusLine(msg)
}

// StatusLine is the status bar text for an error message.
func StatusLine(msg string) string {
	if utf8.RuneCountInString(msg) > statusMaxLen {
		r := []rune(msg)
		msg = string(r[:statusMaxLen])
	}
	return "Error: " + msg + "..."
}
