package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SpideyPotter/InsightEye/internal/dispatch"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
	"github.com/SpideyPotter/InsightEye/internal/ui"
	"github.com/SpideyPotter/InsightEye/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps service errors to status codes. The second return value
// is the rejection reason for unavailable responses.
func statusForError(err error) (int, string) {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode(), ""
	}
	switch {
	case dispatch.IsClosed(err):
		return http.StatusServiceUnavailable, "dispatcher_closed"
	case errors.Is(err, ui.ErrLoopClosed):
		return http.StatusServiceUnavailable, "loop_closed"
	case pipeline.KindOf(err) == pipeline.KindWorkerStartFailed:
		return http.StatusServiceUnavailable, "worker_start_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "loop_busy"
	}
	return http.StatusInternalServerError, ""
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, reason := statusForError(err)
	if reason != "" {
		IncrementRejection(reason)
	}
	msg := err.Error()
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		msg = pe.Display()
	}
	writeJSONError(w, status, msg)
}
