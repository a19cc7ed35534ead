// Package ipc exposes daemon control over JSON-RPC on a Unix domain socket.
// The CLI is its primary consumer; every catalog operation the daemon offers
// has a typed request/response pair here so callers never touch internal
// models directly.
package ipc
