package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/SpideyPotter/InsightEye/internal/app"
	"github.com/SpideyPotter/InsightEye/internal/config"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// errRunFailed makes `run` exit 1 after the failure was already printed.
var errRunFailed = errors.New("run failed")

type options struct {
	configPath     string
	logLevel       string
	pretty         bool
	addr           string
	imagesDir      string
	captionBackend string
	corsEnabled    bool
	corsOrigins    string

	mode    string
	path    string
	jsonOut bool
	timeout time.Duration
}

func buildRootCmd() *cobra.Command { return buildRootCmdWith(&options{}, os.Stdout) }

func buildRootCmdWith(o *options, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "insighteye",
		Short:         "Caption images from uploads, the webcam and voice commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", os.Getenv("INSIGHTEYE_CONFIG"), "Config file (.yaml, .json or .toml)")
	pf.StringVar(&o.logLevel, "log-level", os.Getenv("INSIGHTEYE_LOG_LEVEL"), "Log level: trace|debug|info|warn|error")
	pf.BoolVar(&o.pretty, "pretty", false, "Human-readable console logs (default when stderr is a terminal)")
	pf.StringVar(&o.imagesDir, "images-dir", "", "Directory for captures and uploads")
	pf.StringVar(&o.captionBackend, "caption-backend", "", "Caption backend: gemini|llama_server|none")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, o)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			return a.Serve(ctx)
		},
	}
	serve.Flags().StringVar(&o.addr, "addr", os.Getenv("INSIGHTEYE_ADDR"), "HTTP listen address, e.g. 127.0.0.1:8080")
	serve.Flags().BoolVar(&o.corsEnabled, "cors-enabled", false, "Enable CORS")
	serve.Flags().StringVar(&o.corsOrigins, "cors-origins", "", "Comma-separated allowed origins")

	run := &cobra.Command{
		Use:     "run",
		Short:   "Run one request headless and print the result",
		Example: "  insighteye run --mode upload --path ~/Pictures/dog.jpg\n  insighteye run --mode webcam",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := pipeline.ParseMode(o.mode)
			if err != nil {
				return err
			}
			cfg, logger, err := setup(cmd, o)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if o.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, o.timeout)
				defer cancel()
			}
			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			res, err := a.RunOnce(ctx, pipeline.Request{Mode: mode, Path: o.path})
			if perr := printResult(out, res, o.jsonOut); perr != nil {
				return perr
			}
			if err != nil && res.Err == nil {
				return err
			}
			if res.Failed() {
				return errRunFailed
			}
			return nil
		},
	}
	run.Flags().StringVar(&o.mode, "mode", "upload", "Acquisition mode: voice|upload|webcam")
	run.Flags().StringVar(&o.path, "path", "", "Image to caption in upload mode")
	run.Flags().BoolVar(&o.jsonOut, "json", false, "Print the result as JSON")
	run.Flags().DurationVar(&o.timeout, "timeout", 2*time.Minute, "Give up after this long (0 disables)")

	root.AddCommand(serve, run)
	return root
}

// setup loads the config, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, o *options) (config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	flags := cmd.Flags()
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.addr != "" {
		cfg.Addr = o.addr
	}
	if o.imagesDir != "" {
		cfg.ImagesDir = o.imagesDir
	}
	if o.captionBackend != "" {
		cfg.Caption.Backend = o.captionBackend
	}
	if flags.Changed("cors-enabled") {
		cfg.HTTP.CORSEnabled = o.corsEnabled
	}
	if flags.Changed("cors-origins") {
		cfg.HTTP.CORSOrigins = splitCSV(o.corsOrigins)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, zerolog.Nop(), err
	}
	pretty := o.pretty || isatty.IsTerminal(os.Stderr.Fd())
	return cfg, newLogger(cfg.LogLevel, pretty, os.Stderr), nil
}

func newLogger(level string, pretty bool, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "insighteye").Logger()
}

type resultJSON struct {
	Mode      string `json:"mode"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
	Narrated  bool   `json:"narrated"`
}

func printResult(w io.Writer, res pipeline.Result, asJSON bool) error {
	if asJSON {
		r := resultJSON{Mode: string(res.Mode), Output: res.Output, ImagePath: res.ImagePath, Narrated: res.Narrated}
		if res.Err != nil {
			r.Error, r.ErrorKind = res.Err.Display(), string(res.Err.Kind)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	if res.Err != nil {
		_, err := fmt.Fprintf(w, "Error occurred:\n%s\n", res.Err.Display())
		return err
	}
	if res.Output == "" {
		return nil
	}
	if res.ImagePath != "" {
		if _, err := fmt.Fprintf(w, "%s\n", res.ImagePath); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, res.Output)
	return err
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
