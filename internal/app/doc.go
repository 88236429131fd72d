// Package app assembles InsightEye: configuration, the control loop and
// screen, the dispatcher, the pipeline worker and its adapters. It serves the
// HTTP interface or runs a single request headless.
package app
