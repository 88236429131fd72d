package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a run failure.
type Kind string

const (
	KindNoCommand           Kind = "NoCommand"
	KindUnrecognizedCommand Kind = "UnrecognizedCommand"
	KindCaptureFailed       Kind = "CaptureFailed"
	KindInvalidImage        Kind = "InvalidImage"
	KindDecodeFailed        Kind = "DecodeFailed"
	KindInferenceFailed     Kind = "InferenceFailed"
	// KindNarrationFailed is only logged; it never reaches a Result.
	KindNarrationFailed   Kind = "NarrationFailed"
	KindWorkerStartFailed Kind = "WorkerStartFailed"
	// KindSuperseded marks a run replaced by a newer one. Its result is never shown.
	KindSuperseded Kind = "Superseded"
)

// Error is a stage failure converted into something a user can read.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Display is the text shown to the user. It carries the cause but not the kind.
func (e *Error) Display() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// NewError builds an Error.
func NewError(kind Kind, stage Stage, msg string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: msg, Err: err}
}

// KindOf returns the Kind carried by err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsSuperseded reports whether err marks a superseded run.
func IsSuperseded(err error) bool { return KindOf(err) == KindSuperseded }

// stageFailureKind is the kind reported when a stage fails without a more
// specific classification, e.g. when it panics.
func stageFailureKind(s Stage) Kind {
	switch s {
	case StageAcquire:
		return KindCaptureFailed
	case StagePreprocess:
		return KindDecodeFailed
	case StageInfer:
		return KindInferenceFailed
	case StageNarrate:
		return KindNarrationFailed
	}
	return KindWorkerStartFailed
}
