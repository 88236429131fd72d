package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/SpideyPotter/InsightEye/internal/imaging"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
	"github.com/SpideyPotter/InsightEye/pkg/types"
)

type mockService struct {
	mu         sync.Mutex
	ready      bool
	view       types.View
	events     []types.View
	triggerErr error
	requests   []pipeline.Request
	uploads    map[string][]byte
	uploadDir  string
	latest     string
	latestErr  error
	current    string
	currentErr error
	subs       []chan types.View
}

func (m *mockService) Trigger(ctx context.Context, req pipeline.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.triggerErr != nil {
		return "", m.triggerErr
	}
	m.requests = append(m.requests, req)
	return "h-" + string(req.Mode), nil
}

func (m *mockService) View() types.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

func (m *mockService) EventsSince(seq int64) []types.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.View
	for _, e := range m.events {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockService) Subscribe() (<-chan types.View, func()) {
	ch := make(chan types.View, 8)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch, func() {}
}

func (m *mockService) publish(v types.View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = v
	for _, ch := range m.subs {
		ch <- v
	}
}

func (m *mockService) LatestImage() (string, error) { return m.latest, m.latestErr }

func (m *mockService) CurrentImage() (string, error) {
	if m.current == "" && m.currentErr == nil {
		return "", fs.ErrNotExist
	}
	return m.current, m.currentErr
}

func (m *mockService) SaveUpload(name string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploads == nil {
		m.uploads = map[string][]byte{}
	}
	m.uploads[name] = b
	return filepath.Join(m.uploadDir, name), nil
}

func (m *mockService) Ready() bool { return m.ready }

func (m *mockService) lastRequest(t *testing.T) pipeline.Request {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		t.Fatalf("no run was triggered")
	}
	return m.requests[len(m.requests)-1]
}

func decodeJSON(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("json: %v (body=%q)", err, body)
	}
}

func TestRunEndpoints_Accepted(t *testing.T) {
	for _, mode := range []pipeline.Mode{pipeline.ModeVoice, pipeline.ModeWebcam} {
		svc := &mockService{}
		r := NewMux(svc)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs/"+string(mode), nil))
		if w.Code != http.StatusAccepted {
			t.Fatalf("%s: status=%d body=%s", mode, w.Code, w.Body.String())
		}
		var got types.RunAccepted
		decodeJSON(t, w.Body.Bytes(), &got)
		if got.HandleID != "h-"+string(mode) || got.Mode != string(mode) {
			t.Fatalf("%s: unexpected body %+v", mode, got)
		}
		if req := svc.lastRequest(t); req.Mode != mode {
			t.Fatalf("triggered %+v, want %s", req, mode)
		}
	}
}

func TestRunUpload_JSON(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs/upload", bytes.NewBufferString(`{"path":" /tmp/dog.jpg "}`))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := svc.lastRequest(t); got.Mode != pipeline.ModeUpload || got.Path != "/tmp/dog.jpg" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestRunUpload_EmptyPathStillRuns(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs/upload", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d", w.Code)
	}
	if got := svc.lastRequest(t); got.Path != "" {
		t.Fatalf("path=%q", got.Path)
	}
}

func TestRunUpload_Multipart(t *testing.T) {
	svc := &mockService{uploadDir: "/srv/images"}
	r := NewMux(svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "cat.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("png-bytes"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/runs/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if string(svc.uploads["cat.png"]) != "png-bytes" {
		t.Fatalf("upload not stored: %v", svc.uploads)
	}
	if got := svc.lastRequest(t); got.Path != "/srv/images/cat.png" {
		t.Fatalf("path=%q", got.Path)
	}
}

func TestRunUpload_Rejections(t *testing.T) {
	cases := []struct {
		name string
		ct   string
		body string
		want int
	}{
		{"no content type", "", `{"path":"x"}`, http.StatusUnsupportedMediaType},
		{"text", "text/plain", "x", http.StatusUnsupportedMediaType},
		{"bad json", "application/json", `{"path":`, http.StatusBadRequest},
		{"multipart without image", "multipart/form-data; boundary=xyz", "--xyz--\r\n", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/runs/upload", strings.NewReader(tc.body))
			if tc.ct != "" {
				req.Header.Set("Content-Type", tc.ct)
			}
			NewMux(svc).ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.want, w.Body.String())
			}
			var e types.ErrorResponse
			decodeJSON(t, w.Body.Bytes(), &e)
			if e.Code != tc.want || e.Error == "" {
				t.Fatalf("unexpected error body %+v", e)
			}
			if len(svc.requests) != 0 {
				t.Fatalf("run must not start on rejection")
			}
		})
	}
}

func TestRunUpload_BodyTooLarge(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(64)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("image", "big.jpg")
	_, _ = fw.Write(bytes.Repeat([]byte("x"), 1024))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/runs/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	svc := &mockService{}
	NewMux(svc).ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge && w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(svc.requests) != 0 || len(svc.uploads) != 0 {
		t.Fatalf("oversized upload must not start a run")
	}
}

func TestViewHandler(t *testing.T) {
	svc := &mockService{view: types.View{Seq: 4, Busy: true, Output: "Processing... Please wait", Status: "Ready"}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var v types.View
	decodeJSON(t, w.Body.Bytes(), &v)
	if v.Seq != 4 || !v.Busy {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestEventsHandler(t *testing.T) {
	svc := &mockService{
		view:   types.View{Seq: 3},
		events: []types.View{{Seq: 1}, {Seq: 2}, {Seq: 3}},
	}
	h := NewMux(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events?since=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp types.EventsResponse
	decodeJSON(t, w.Body.Bytes(), &resp)
	if len(resp.Events) != 2 || resp.Events[0].Seq != 2 || resp.Seq != 3 {
		t.Fatalf("unexpected events %+v", resp)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events?since=3", nil))
	if !strings.Contains(w.Body.String(), `"events":[]`) {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events?since=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestLatestImage(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, imaging.CapturePrefix+"x.jpg")
	if err := os.WriteFile(p, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := &mockService{latest: p}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/latest", nil))
	if w.Code != http.StatusOK || w.Body.String() != "jpeg" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}

	svc = &mockService{latestErr: imaging.ErrNoCaptures}
	w = httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/latest", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCurrentImage(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/current", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}

	p := filepath.Join(t.TempDir(), "dog.jpg")
	if err := os.WriteFile(p, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	// the view may name a path the service refuses to serve
	svc := &mockService{view: types.View{ImagePath: p}, currentErr: fmt.Errorf("refused: %w", fs.ErrNotExist)}
	w = httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/current", nil))
	if w.Code != http.StatusNotFound || strings.Contains(w.Body.String(), "jpeg") {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	NewMux(&mockService{current: p}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/current", nil))
	if w.Code != http.StatusOK || w.Body.String() != "jpeg" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	svc := &mockService{ready: true}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	svc := &mockService{ready: false}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "starting") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodGet, "/view", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/view", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header %q", got)
	}
}
