package pipeline

import (
	"fmt"
	"strings"
)

// Mode selects how a run acquires its image. It is fixed once a run starts.
type Mode string

const (
	ModeVoice  Mode = "voice"
	ModeUpload Mode = "upload"
	ModeWebcam Mode = "webcam"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeVoice, ModeUpload, ModeWebcam:
		return true
	}
	return false
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (want voice, upload or webcam)", s)
	}
	return m, nil
}

// Request is consumed by exactly one run. Path is only meaningful for ModeUpload.
type Request struct {
	Mode Mode
	Path string
	// Stop is closed when the run has been superseded. The worker checks it
	// between stages; a call already in flight is left to finish.
	Stop <-chan struct{}
}

// stopped reports whether req.Stop has been closed. A nil Stop never is.
func (r Request) stopped() bool {
	select {
	case <-r.Stop:
		return true
	default:
		return false
	}
}

// Stage names a step of the run.
type Stage string

const (
	StageAcquire    Stage = "acquire"
	StagePreprocess Stage = "preprocess"
	StageInfer      Stage = "infer"
	StageNarrate    Stage = "narrate"
)

// Result is the terminal outcome of a run. Exactly one is produced per run,
// including when a stage panics.
type Result struct {
	Mode   Mode
	Output string
	Err    *Error
	// ImagePath is the absolute path of the image that was captioned, if a run
	// got that far.
	ImagePath string
	// Narrated is false when the caption was not spoken. It never turns a
	// successful result into a failed one.
	Narrated bool
}

// Failed reports whether the run ended with an error.
func (r Result) Failed() bool { return r.Err != nil }

// DecodingParams are handed to the caption backend unchanged for every run.
type DecodingParams struct {
	NumBeams          int
	MaxLength         int
	NoRepeatNGramSize int
	EarlyStopping     bool
}

const (
	beamWidth        = 4
	maxCaptionTokens = 16
	noRepeatNGram    = 2
)

// Decoding returns the fixed decoding parameters used for every caption.
func Decoding() DecodingParams {
	return DecodingParams{
		NumBeams:          beamWidth,
		MaxLength:         maxCaptionTokens,
		NoRepeatNGramSize: noRepeatNGram,
		EarlyStopping:     true,
	}
}
