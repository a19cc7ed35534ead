// Package daemon wires the catalog store, consolidation worker, bulk
// coordinator, and progress hub into a single long-running process. It
// enforces single-instance execution through a file lock and exposes the
// shared services to the IPC and HTTP layers.
package daemon
