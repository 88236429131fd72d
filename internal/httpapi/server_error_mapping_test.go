package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/dispatch"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
	"github.com/SpideyPotter/InsightEye/internal/ui"
	"github.com/SpideyPotter/InsightEye/pkg/types"
)

type teapotError struct{}

func (teapotError) Error() string   { return "short and stout" }
func (teapotError) StatusCode() int { return http.StatusTeapot }

func TestRun_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"dispatcher closed", fmt.Errorf("start: %w", dispatch.ErrClosed), http.StatusServiceUnavailable, "dispatcher_closed"},
		{"loop closed", ui.ErrLoopClosed, http.StatusServiceUnavailable, "loop_closed"},
		{"worker start", pipeline.NewError(pipeline.KindWorkerStartFailed, pipeline.StageAcquire, "could not start", nil), http.StatusServiceUnavailable, "worker_start_failed"},
		{"loop busy", context.DeadlineExceeded, http.StatusServiceUnavailable, "loop_busy"},
		{"http error", teapotError{}, http.StatusTeapot, ""},
		{"other", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var before float64
			if tc.reason != "" {
				before = testutil.ToFloat64(rejectionsTotal.WithLabelValues(tc.reason))
			}
			svc := &mockService{triggerErr: tc.err}
			w := httptest.NewRecorder()
			NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs/webcam", nil))
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			var e types.ErrorResponse
			decodeJSON(t, w.Body.Bytes(), &e)
			if e.Code != tc.status {
				t.Fatalf("body code=%d", e.Code)
			}
			if tc.reason != "" {
				if got := testutil.ToFloat64(rejectionsTotal.WithLabelValues(tc.reason)); got != before+1 {
					t.Fatalf("rejections{%s}=%v want %v", tc.reason, got, before+1)
				}
			}
		})
	}
}

func TestRun_PipelineErrorUsesDisplayText(t *testing.T) {
	err := pipeline.NewError(pipeline.KindWorkerStartFailed, pipeline.StageAcquire, "could not start", errors.New("internal detail"))
	w := httptest.NewRecorder()
	NewMux(&mockService{triggerErr: err}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs/voice", nil))
	var e types.ErrorResponse
	decodeJSON(t, w.Body.Bytes(), &e)
	if e.Error != err.Display() {
		t.Fatalf("error=%q want %q", e.Error, err.Display())
	}
}

func TestRun_LogsWithZerolog(t *testing.T) {
	SetLogger(zerolog.New(io.Discard))
	defer SetLogger(zerolog.Logger{})

	for _, svc := range []*mockService{{}, {triggerErr: errors.New("boom")}} {
		w := httptest.NewRecorder()
		NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs/webcam?log=info", nil))
		if w.Code != http.StatusAccepted && w.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d", w.Code)
		}
	}
}
