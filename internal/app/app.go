package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/caption"
	"github.com/SpideyPotter/InsightEye/internal/capture"
	"github.com/SpideyPotter/InsightEye/internal/common/fsutil"
	"github.com/SpideyPotter/InsightEye/internal/config"
	"github.com/SpideyPotter/InsightEye/internal/dispatch"
	"github.com/SpideyPotter/InsightEye/internal/imaging"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
	"github.com/SpideyPotter/InsightEye/internal/speech"
	"github.com/SpideyPotter/InsightEye/internal/ui"
)

const historySize = 256

// App owns every long-lived component.
type App struct {
	cfg       config.Config
	logger    zerolog.Logger
	imagesDir string

	loop       *ui.Loop
	screen     *ui.Screen
	dispatcher *dispatch.Dispatcher
	controller *ui.Controller

	captioner caption.Captioner
	closers   []func() error
}

// components are the external collaborators of the pipeline worker.
type components struct {
	acquirer  pipeline.Acquirer
	captioner caption.Captioner
	narrator  pipeline.Narrator
	closers   []func() error
}

// New builds the adapters named by cfg and assembles the App. ctx parents
// every pipeline run.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	dir, err := fsutil.ExpandHome(cfg.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("images dir: %w", err)
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("images dir: %w", err)
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return nil, fmt.Errorf("images dir: %w", err)
	}
	cfg.ImagesDir = dir

	loader := imaging.NewLoader(dir, cfg.Caption.MaxSide)
	var camera *capture.Camera
	if cfg.Capture.Backend != "none" {
		grabber := capture.NewDefaultGrabber(cfg.Capture.FFmpegBin, logger)
		camera = capture.NewCamera(capture.CameraConfig{
			ImagesDir:    dir,
			Devices:      cfg.Capture.Devices,
			WarmupFrames: cfg.Capture.WarmupFrames,
			Timeout:      cfg.Capture.Timeout.Std(),
		}, grabber, logger)
	}

	captioner, err := caption.New(ctx, caption.Config{
		Backend:        cfg.Caption.Backend,
		GeminiAPIKey:   cfg.Caption.GeminiAPIKey,
		GeminiModel:    cfg.Caption.GeminiModel,
		LlamaServerURL: cfg.Caption.LlamaServerURL,
		Timeout:        cfg.Caption.Timeout.Std(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("caption backend: %w", err)
	}

	model, err := speech.ResolveModel(cfg.Speech.WhisperModel)
	if err != nil {
		_ = captioner.Close()
		return nil, err
	}
	engine, err := speech.NewEngine(model, cfg.Speech.Language, logger)
	if err != nil {
		_ = captioner.Close()
		return nil, fmt.Errorf("speech engine: %w", err)
	}
	narrator := speech.NewNarrator(
		speech.NewArecordRecorder(cfg.Speech.RecorderBin),
		engine,
		speech.NewEspeakSpeaker(cfg.Speech.TTSBin, cfg.Speech.Rate, cfg.Speech.Volume),
		"", logger)

	logger.Info().
		Str("images_dir", dir).
		Str("capture", cfg.Capture.Backend).
		Str("caption", captioner.Name()).
		Str("speech", speech.EngineName).
		Msg("components ready")

	return assemble(ctx, cfg, logger, components{
		acquirer:  capture.NewSource(camera, loader),
		captioner: captioner,
		narrator:  narrator,
		closers:   []func() error{captioner.Close, narrator.Close},
	}), nil
}

func assemble(ctx context.Context, cfg config.Config, logger zerolog.Logger, c components) *App {
	worker := pipeline.NewWorker(c.acquirer, c.captioner, c.narrator,
		pipeline.WithListenTimeout(cfg.ListenTimeout.Std()),
		pipeline.WithLogger(logger.With().Str("component", "pipeline").Logger()),
		pipeline.WithObserver(dispatch.StageMetrics{}),
	)

	a := &App{
		cfg:       cfg,
		logger:    logger,
		imagesDir: cfg.ImagesDir,
		captioner: c.captioner,
		closers:   c.closers,
	}
	a.loop = ui.NewLoop(logger)
	a.screen = ui.NewScreen(ui.NewHistory(historySize), a.LatestImage, logger)
	a.loop.SetFaultHandler(a.screen.Fault)
	a.dispatcher = dispatch.NewWithConfig(dispatch.Config{
		Runner:      worker,
		Interface:   a.screen,
		Loop:        a.loop,
		JoinTimeout: cfg.JoinTimeout.Std(),
		Logger:      logger,
		Publisher:   dispatch.NewLogPublisher(logger),
		BaseContext: ctx,
	})
	a.controller = ui.NewController(a.loop, a.screen, a.dispatcher)
	return a
}

// startLoop runs the control loop until Stop; the returned channel closes
// when it has drained.
func (a *App) startLoop() <-chan struct{} {
	go func() {
		if err := a.loop.Run(context.Background()); err != nil {
			a.logger.Error().Err(err).Msg("control loop exited")
		}
	}()
	return a.loop.Done()
}

// shutdown cancels the current run, drains the control loop and releases
// the adapters.
func (a *App) shutdown(ctx context.Context) error {
	var errs []error
	if err := a.dispatcher.Close(); err != nil {
		errs = append(errs, err)
	}
	a.loop.Stop()
	select {
	case <-a.loop.Done():
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("control loop drain: %w", ctx.Err()))
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
