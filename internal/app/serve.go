package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/SpideyPotter/InsightEye/internal/dispatch"
	"github.com/SpideyPotter/InsightEye/internal/httpapi"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

// Handler returns the HTTP interface for a.
func (a *App) Handler() http.Handler {
	httpapi.SetLogger(a.logger.With().Str("component", "httpapi").Logger())
	httpapi.SetMaxBodyBytes(a.cfg.HTTP.MaxBodyBytes)
	httpapi.SetCORSOptions(a.cfg.HTTP.CORSEnabled, a.cfg.HTTP.CORSOrigins, nil, nil)
	return httpapi.NewMux(a)
}

// Serve runs the control loop and the HTTP interface until ctx is done, then
// shuts everything down within shutdownTimeout.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	a.startLoop()
	httpapi.SetBaseContext(ctx)
	defer httpapi.SetBaseContext(nil)
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", ln.Addr().String()).Msg("insighteye listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down")
	case serveErr = <-errCh:
		a.logger.Error().Err(serveErr).Msg("server error")
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		a.logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := a.shutdown(shCtx); err != nil {
		a.logger.Warn().Err(err).Msg("component shutdown error")
	}
	return serveErr
}

// RunOnce executes a single request headless and returns its Result.
func (a *App) RunOnce(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	a.startLoop()
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.shutdown(shCtx); err != nil {
			a.logger.Warn().Err(err).Msg("component shutdown error")
		}
	}()

	delivered := make(chan pipeline.Result, 1)
	a.screen.OnDeliver(func(_ *dispatch.Handle, res pipeline.Result) {
		select {
		case delivered <- res:
		default:
		}
	})
	defer a.screen.OnDeliver(nil)

	if _, err := a.Trigger(ctx, req); err != nil {
		return pipeline.Result{Mode: req.Mode, Err: asPipelineError(err)}, err
	}
	select {
	case res := <-delivered:
		return res, nil
	case <-ctx.Done():
		return pipeline.Result{}, ctx.Err()
	}
}

func asPipelineError(err error) *pipeline.Error {
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		return pe
	}
	return pipeline.NewError(pipeline.KindWorkerStartFailed, pipeline.StageAcquire, "could not start the run", err)
}
