package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SpideyPotter/InsightEye/internal/caption"
	"github.com/SpideyPotter/InsightEye/internal/imaging"
	"github.com/SpideyPotter/InsightEye/internal/pipeline"
	"github.com/SpideyPotter/InsightEye/pkg/types"
)

const uploadPrefix = "upload_"

// Trigger starts req through the control loop.
func (a *App) Trigger(ctx context.Context, req pipeline.Request) (string, error) {
	return a.controller.Trigger(ctx, req)
}

func (a *App) View() types.View { return a.screen.View() }

func (a *App) EventsSince(seq int64) []types.View { return a.screen.History().Since(seq) }

func (a *App) Subscribe() (<-chan types.View, func()) { return a.screen.History().Subscribe() }

// LatestImage returns the newest capture in the images directory.
func (a *App) LatestImage() (string, error) { return imaging.Latest(a.imagesDir) }

// CurrentImage returns the image displayed next to the latest result. A
// path outside the images directory is only served after a successful run,
// when it is the loader's resolved image.
func (a *App) CurrentImage() (string, error) {
	v := a.screen.View()
	p := v.ImagePath
	if p == "" || !filepath.IsAbs(p) {
		return "", fs.ErrNotExist
	}
	if !within(a.imagesDir, p) && v.Error != "" {
		return "", fmt.Errorf("%s is not servable: %w", p, fs.ErrNotExist)
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file: %w", p, fs.ErrNotExist)
	}
	return p, nil
}

func within(dir, p string) bool {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SaveUpload copies r into the images directory under a unique name that
// keeps the client's base name.
func (a *App) SaveUpload(name string, r io.Reader) (string, error) {
	base := sanitizeName(name)
	var (
		f   *os.File
		err error
	)
	stamp := time.Now().Format("20060102_150405.000000000")
	for attempt := 0; attempt < 10; attempt++ {
		n := uploadPrefix + stamp + "_" + base
		if attempt > 0 {
			n = fmt.Sprintf("%s%s_%d_%s", uploadPrefix, stamp, attempt, base)
		}
		f, err = os.OpenFile(filepath.Join(a.imagesDir, n), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !os.IsExist(err) {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	path := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	a.logger.Debug().Str("path", path).Msg("upload stored")
	return path, nil
}

// Ready reports whether runs can be served: the loop is up and a caption
// backend is configured.
func (a *App) Ready() bool {
	return a.loop.Running() && caption.Available(a.captioner)
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	base = strings.TrimLeft(base, ".")
	if base == "" || base == "_" {
		return "image"
	}
	return base
}
