// Command conveyor is the CLI for the conveyor daemon. It talks JSON-RPC
// over the daemon's Unix socket and renders catalog, batch, undo, and audit
// state for interactive use.
package main
