// Package dispatch owns the single-slot worker handle. It accepts start
// requests from the interface, guarantees that at most one pipeline run is
// Running, supersedes an in-flight run with a bounded join, and relays the
// terminal Result back onto the interface control loop.
//
//   - handle.go: Handle and its state machine.
//   - dispatcher.go: Dispatcher, Start, delivery and Close.
//   - config.go: Config and defaults.
//   - errors.go: ErrClosed and helpers.
//   - events.go, eventpub_memory.go, eventpub_log.go: lifecycle events.
//   - metrics.go: Prometheus collectors, including the pipeline stage observer.
package dispatch
