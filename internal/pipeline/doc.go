// Package pipeline runs a single captioning run: acquire an image, decode it,
// caption it and read the caption aloud. It is structured into small files by
// concern:
//
//   - types.go: Mode, Request, Result, Stage and the fixed decoding parameters.
//   - errors.go: the failure taxonomy (Kind) and the Error type.
//   - ports.go: the narrow contracts of the external collaborators.
//   - intents.go: voice command matching.
//   - worker.go: Worker.Run, the stage sequence and panic recovery.
//
// The package knows nothing about goroutines or supersession; internal/dispatch
// owns the single-slot worker handle and decides which Result is delivered.
package pipeline
