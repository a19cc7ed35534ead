// Package bulk applies review actions to sets of products. The coordinator
// validates a request against transition policy, writes the new status
// through the catalog store, hands a reversible command to the undo queue,
// and records audit telemetry without ever letting an audit failure affect
// the primary write.
package bulk
