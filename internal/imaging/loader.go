package imaging

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// Sentinels shared with the pipeline so it can classify Load failures.
var (
	ErrInvalidImage = pipeline.ErrInvalidImage
	ErrDecodeFailed = pipeline.ErrDecodeFailed
)

// MaxPixels bounds the declared size of an image before it is decoded.
const MaxPixels = 50_000_000

var supportedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/webp",
	"image/tiff",
}

// Loader turns user supplied paths into RGBA images.
type Loader struct {
	imagesDir string
	maxSide   int
}

// NewLoader resolves relative paths into imagesDir. Images larger than
// maxSide on either side are scaled down; 0 keeps the original size.
func NewLoader(imagesDir string, maxSide int) *Loader {
	return &Loader{imagesDir: imagesDir, maxSide: maxSide}
}

// ImagesDir is where relative paths and captures live.
func (l *Loader) ImagesDir() string { return l.imagesDir }

// ResolvePath makes p absolute. A relative p is looked up by its base name in
// the images directory.
func (l *Loader) ResolvePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidImage)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.imagesDir, filepath.Base(p))
	}
	return filepath.Abs(p)
}

// Load validates that p is a readable regular file holding a supported image,
// decodes it and returns it normalized to RGBA together with its absolute path.
func (l *Loader) Load(p string) (image.Image, string, error) {
	abs, err := l.ResolvePath(p)
	if err != nil {
		return nil, "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, abs, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, abs, fmt.Errorf("%w: %s is not a regular file", ErrInvalidImage, abs)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, abs, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, abs, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if !mimetype.EqualsAny(mt.String(), supportedTypes...) {
		return nil, abs, fmt.Errorf("%w: %s has type %s", ErrInvalidImage, filepath.Base(abs), mt.String())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, abs, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, abs, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, abs, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, abs, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, abs, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return Normalize(img, l.maxSide), abs, nil
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: empty image (%dx%d)", ErrInvalidImage, w, h)
	}
	if int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, w, h, MaxPixels)
	}
	return nil
}
