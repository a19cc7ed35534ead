// Package audit records bulk review operations in the append-only audit log.
// Writes are best effort: a failed audit write is logged and never fails the
// operation that produced it.
package audit
