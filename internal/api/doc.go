// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal catalog models into transport-friendly
// DTOs so that CLI and HTTP consumers never couple to internal types.
//
// # Key Types
//
// Product: transport representation of a catalog record with its merged
// payload, confidence score, and pipeline status.
//
// Batch: consolidation batch state with progress percentage and counts.
//
// UndoEntry: a pending reversible bulk operation with its remaining window.
//
// DaemonStatus: daemon running state plus per-status catalog counts.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (pipeline.Status,
// catalog.BatchStatus) are exposed as lowercase strings. Timestamps use
// RFC3339 with milliseconds. Raw JSON payloads are passed through as
// json.RawMessage to avoid double-encoding.
package api
