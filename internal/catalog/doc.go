// Package catalog manages product persistence backed by SQLite. It owns the
// product rows, the append-only audit log, and consolidation batch records,
// and exposes the bulk status and delete operations the review coordinator
// builds on.
package catalog
