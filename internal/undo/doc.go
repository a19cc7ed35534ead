// Package undo buffers reversible bulk commands for a fixed 30-second
// window. Entries hold explicit command values rather than closures, so a
// revert is the inverse command executed through the same coordinator path
// as the original operation.
package undo
