package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SpideyPotter/InsightEye/internal/common/fsutil"
	"github.com/SpideyPotter/InsightEye/internal/imaging"
)

// Defaults applied when CameraConfig fields are unset.
const (
	DefaultWarmupFrames = 5
	DefaultGrabTimeout  = 10 * time.Second
	maxNameAttempts     = 100
)

// DefaultDevices are probed in order.
var DefaultDevices = []string{"/dev/video0", "/dev/video1", "/dev/video2"}

// Grabber writes one frame from device to dst as JPEG after discarding
// warmup frames.
type Grabber interface {
	Grab(ctx context.Context, device string, warmup int, dst string) error
	Name() string
}

// CameraConfig configures a Camera.
type CameraConfig struct {
	ImagesDir    string
	Devices      []string
	WarmupFrames int
	Timeout      time.Duration
}

// Camera probes devices in order and keeps the first frame it gets.
type Camera struct {
	dir     string
	devices []string
	warmup  int
	timeout time.Duration
	grabber Grabber
	logger  zerolog.Logger

	now  func() time.Time
	stat func(string) (os.FileInfo, error)
}

func NewCamera(cfg CameraConfig, g Grabber, logger zerolog.Logger) *Camera {
	c := &Camera{
		dir:     cfg.ImagesDir,
		devices: cfg.Devices,
		warmup:  cfg.WarmupFrames,
		timeout: cfg.Timeout,
		grabber: g,
		logger:  logger.With().Str("component", "capture").Str("grabber", g.Name()).Logger(),
		now:     time.Now,
		stat:    os.Stat,
	}
	if len(c.devices) == 0 {
		c.devices = DefaultDevices
	}
	if c.warmup < 0 {
		c.warmup = 0
	} else if c.warmup == 0 {
		c.warmup = DefaultWarmupFrames
	}
	if c.timeout <= 0 {
		c.timeout = DefaultGrabTimeout
	}
	return c
}

// Capture returns the path of a new captured_image_*.jpg in the images
// directory. It returns "" and a nil error when no device is present, and
// the joined grab errors when devices exist but none produced a frame.
func (c *Camera) Capture(ctx context.Context) (string, error) {
	if err := fsutil.EnsureDir(c.dir); err != nil {
		return "", fmt.Errorf("images dir: %w", err)
	}
	var errs []error
	for _, dev := range c.devices {
		if strings.HasPrefix(dev, "/dev/") {
			if _, err := c.stat(dev); err != nil {
				c.logger.Debug().Str("device", dev).Msg("device not present")
				continue
			}
		}
		path, err := c.reserve()
		if err != nil {
			return "", err
		}
		gctx, cancel := context.WithTimeout(ctx, c.timeout)
		err = c.grabber.Grab(gctx, dev, c.warmup, path)
		cancel()
		if err == nil {
			if fi, serr := os.Stat(path); serr == nil && fi.Size() > 0 {
				c.logger.Info().Str("device", dev).Str("path", path).Msg("image captured")
				return path, nil
			}
			err = errors.New("no frame written")
		}
		_ = os.Remove(path)
		c.logger.Warn().Err(err).Str("device", dev).Msg("grab failed")
		errs = append(errs, fmt.Errorf("%s: %w", dev, err))
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	c.logger.Warn().Strs("devices", c.devices).Msg("could not find any webcam")
	return "", nil
}

// reserve creates an empty, uniquely named capture file so concurrent or
// rapid captures never share a name.
func (c *Camera) reserve() (string, error) {
	t := c.now()
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		p := filepath.Join(c.dir, imaging.CaptureName(t, attempt))
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create capture file: %w", err)
		}
		_ = f.Close()
		return p, nil
	}
	return "", fmt.Errorf("no free capture name for %s", t.Format(time.RFC3339Nano))
}

// Source combines a Camera and an image Loader into a pipeline.Acquirer.
type Source struct {
	camera *Camera
	loader *imaging.Loader
}

// NewSource returns an acquirer. camera may be nil when capture is disabled.
func NewSource(camera *Camera, loader *imaging.Loader) *Source {
	return &Source{camera: camera, loader: loader}
}

func (s *Source) Capture(ctx context.Context) (string, error) {
	if s.camera == nil {
		return "", nil
	}
	return s.camera.Capture(ctx)
}

func (s *Source) Resolve(path string) (image.Image, string, error) {
	return s.loader.Load(path)
}
