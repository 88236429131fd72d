package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SpideyPotter/InsightEye/internal/imaging"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
	"github.com/SpideyPotter/InsightEye/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	// Trigger starts a run and returns its handle id.
	Trigger(ctx context.Context, req pipeline.Request) (string, error)
	View() types.View
	EventsSince(seq int64) []types.View
	Subscribe() (<-chan types.View, func())
	LatestImage() (string, error)
	// CurrentImage returns the image displayed next to the latest result.
	CurrentImage() (string, error)
	// SaveUpload stores an uploaded image and returns its path.
	SaveUpload(name string, r io.Reader) (string, error)
	Ready() bool
}

type handlers struct {
	svc Service
}

func NewMux(svc Service) http.Handler {
	h := &handlers{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(corsMiddleware())
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/runs", func(r chi.Router) {
		r.Post("/voice", h.runVoice)
		r.Post("/webcam", h.runWebcam)
		r.Post("/upload", h.runUpload)
	})
	r.Get("/view", h.view)
	r.Get("/events", h.events)
	r.Get("/ws", h.ws)
	r.Get("/images/latest", h.latestImage)
	r.Get("/images/current", h.currentImage)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("starting"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Debug().Err(err).Msg("encode response")
	}
}

// runVoice godoc
// @Summary      Start a voice run
// @Description  Listens for "take picture" or "click picture", then captures and captions a webcam frame.
// @Tags         runs
// @Produce      json
// @Success      202  {object}  types.RunAccepted
// @Failure      503  {object}  types.ErrorResponse
// @Router       /runs/voice [post]
func (h *handlers) runVoice(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, pipeline.Request{Mode: pipeline.ModeVoice})
}

// runWebcam godoc
// @Summary      Start a webcam run
// @Tags         runs
// @Produce      json
// @Success      202  {object}  types.RunAccepted
// @Failure      503  {object}  types.ErrorResponse
// @Router       /runs/webcam [post]
func (h *handlers) runWebcam(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, pipeline.Request{Mode: pipeline.ModeWebcam})
}

// runUpload godoc
// @Summary      Caption an image
// @Description  Accepts either a JSON body naming a local path or a multipart form with an "image" file.
// @Tags         runs
// @Accept       json,mpfd
// @Produce      json
// @Param        request  body      types.RunRequest  false  "Image path"
// @Param        image    formData  file              false  "Image file"
// @Success      202  {object}  types.RunAccepted
// @Failure      400  {object}  types.ErrorResponse
// @Failure      415  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /runs/upload [post]
func (h *handlers) runUpload(w http.ResponseWriter, r *http.Request) {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var path string
	switch {
	case strings.HasPrefix(ct, "application/json"):
		var req types.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		// An empty path is passed through; the run reports it as an invalid image.
		path = strings.TrimSpace(req.Path)
	case strings.HasPrefix(ct, "multipart/form-data"):
		f, hdr, err := r.FormFile("image")
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "upload too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, `multipart field "image" is required`)
			return
		}
		defer f.Close()
		path, err = h.svc.SaveUpload(hdr.Filename, f)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
	default:
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json or multipart/form-data")
		return
	}
	h.trigger(w, r, pipeline.Request{Mode: pipeline.ModeUpload, Path: path})
}

func (h *handlers) trigger(w http.ResponseWriter, r *http.Request, req pipeline.Request) {
	start := time.Now()
	ctx, cancel := requestContext(r)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, triggerTimeout)
	defer cancelTimeout()

	id, err := h.svc.Trigger(ctx, req)
	if err != nil {
		status, _ := statusForError(err)
		writeServiceError(w, err)
		logRun(r, string(req.Mode), status, start, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.RunAccepted{HandleID: id, Mode: string(req.Mode)})
	logRun(r, string(req.Mode), http.StatusAccepted, start, nil)
}

// view godoc
// @Summary  Current interface state
// @Tags     view
// @Produce  json
// @Success  200  {object}  types.View
// @Router   /view [get]
func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.View())
}

// events godoc
// @Summary  View changes after a sequence number
// @Tags     view
// @Produce  json
// @Param    since  query     int  false  "Last sequence seen"
// @Success  200    {object}  types.EventsResponse
// @Failure  400    {object}  types.ErrorResponse
// @Router   /events [get]
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = n
	}
	seq := h.svc.View().Seq
	evs := h.svc.EventsSince(since)
	if evs == nil {
		evs = []types.View{}
	}
	for _, e := range evs {
		if e.Seq > seq {
			seq = e.Seq
		}
	}
	writeJSON(w, http.StatusOK, types.EventsResponse{Events: evs, Seq: seq})
}

// latestImage godoc
// @Summary  Most recent webcam capture
// @Tags     images
// @Produce  image/jpeg
// @Success  200
// @Failure  404  {object}  types.ErrorResponse
// @Router   /images/latest [get]
func (h *handlers) latestImage(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.LatestImage()
	if err != nil {
		if errors.Is(err, imaging.ErrNoCaptures) || errors.Is(err, fs.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, "no captured image yet")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.ServeFile(w, r, p)
}

// currentImage godoc
// @Summary  Image displayed next to the latest result
// @Tags     images
// @Produce  image/jpeg
// @Success  200
// @Failure  404  {object}  types.ErrorResponse
// @Router   /images/current [get]
func (h *handlers) currentImage(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.CurrentImage()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, "no image displayed")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	http.ServeFile(w, r, p)
}
