package pipeline

import (
	"context"
	"errors"
	"image"
	"time"
)

// Sentinels returned by Acquirer.Resolve implementations. The worker maps them
// onto KindInvalidImage and KindDecodeFailed.
var (
	ErrInvalidImage = errors.New("invalid image")
	ErrDecodeFailed = errors.New("image decode failed")
)

// Acquirer produces images.
type Acquirer interface {
	// Capture grabs a frame from a camera and writes it to disk. An empty path
	// with a nil error means no camera produced a frame.
	Capture(ctx context.Context) (string, error)
	// Resolve turns a path into a decoded RGBA image and its absolute path.
	Resolve(path string) (image.Image, string, error)
}

// Captioner maps an image to a caption.
type Captioner interface {
	Caption(ctx context.Context, img image.Image, params DecodingParams) (string, error)
}

// Narrator speaks text and listens for spoken commands.
type Narrator interface {
	// Listen returns the recognized command, or "" when nothing was heard
	// before timeout.
	Listen(ctx context.Context, timeout time.Duration) (string, error)
	Speak(ctx context.Context, text string) error
}
