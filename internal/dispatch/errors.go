package dispatch

import (
	"errors"

	"github.com/SpideyPotter/InsightEye/internal/pipeline"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("dispatcher closed")

// IsClosed reports whether err came from a closed dispatcher.
func IsClosed(err error) bool { return errors.Is(err, ErrClosed) }

func startFailed(msg string, err error) *pipeline.Error {
	return pipeline.NewError(pipeline.KindWorkerStartFailed, pipeline.StageAcquire, msg, err)
}
