package pipeline

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_WrapAndKind(t *testing.T) {
	cause := errors.New("connection refused")
	e := NewError(KindInferenceFailed, StageInfer, "caption generation failed", cause)
	wrapped := fmt.Errorf("run: %w", e)
	if KindOf(wrapped) != KindInferenceFailed {
		t.Fatalf("KindOf = %q", KindOf(wrapped))
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("cause lost through Unwrap")
	}
	if e.Display() != "caption generation failed: connection refused" {
		t.Fatalf("Display = %q", e.Display())
	}
	if KindOf(cause) != "" {
		t.Fatalf("plain error must have no kind")
	}
	if !IsSuperseded(NewError(KindSuperseded, StageAcquire, "superseded", nil)) {
		t.Fatalf("IsSuperseded false")
	}
	var nilErr *Error
	if nilErr.Display() != "" {
		t.Fatalf("nil Display should be empty")
	}
}
