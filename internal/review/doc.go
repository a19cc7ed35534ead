// Package review owns the per-session review state: the active tab and
// filters, the selection, the undo queue, and batch progress tracking. One
// Session serves one client; nothing here is shared across sessions.
package review
