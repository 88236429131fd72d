package imaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CapturePrefix starts the name of every webcam capture.
const CapturePrefix = "captured_image_"

// captureLayout sorts lexically in time order.
const captureLayout = "20060102_150405.000000000"

// ErrNoCaptures is returned by Latest when the directory holds no capture.
var ErrNoCaptures = errors.New("no captured images")

// CaptureName names a capture taken at t. attempt > 0 adds a suffix used when
// the plain name is already taken.
func CaptureName(t time.Time, attempt int) string {
	name := CapturePrefix + t.Format(captureLayout)
	if attempt > 0 {
		name += fmt.Sprintf("_%d", attempt)
	}
	return name + ".jpg"
}

// Latest returns the most recently modified capture in dir. Ties go to the
// lexically greater name. Empty files are placeholders of captures still in
// progress and are skipped.
func Latest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var (
		best     string
		bestTime time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), CapturePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
			continue
		}
		mt := info.ModTime()
		if best == "" || mt.After(bestTime) || (mt.Equal(bestTime) && e.Name() > best) {
			best, bestTime = e.Name(), mt
		}
	}
	if best == "" {
		return "", ErrNoCaptures
	}
	return filepath.Join(dir, best), nil
}
