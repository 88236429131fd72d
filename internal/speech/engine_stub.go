//go:build !whisper_cpp

package speech

import "github.com/rs/zerolog"

// EngineName identifies the recognizer compiled into this build.
const EngineName = "none"

// stubEngine never recognizes anything, so voice runs end with NoCommand.
type stubEngine struct{}

func NewEngine(modelPath, language string, logger zerolog.Logger) (Engine, error) {
	logger.Warn().Msg("speech recognition not compiled in; build with -tags=whisper_cpp")
	return stubEngine{}, nil
}

func (stubEngine) Transcribe([]float32) (string, error) { return "", nil }
func (stubEngine) Close() error                        { return nil }
