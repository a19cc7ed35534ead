// Package logging assembles structured slog loggers and formatting helpers
// used across Conveyor.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and exposes attribute helpers so components emit data with
// a consistent shape. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
