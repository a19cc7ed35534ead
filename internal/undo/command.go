package undo

import (
	"context"

	"conveyor/internal/pipeline"
)

// CommandKind names the reversible operation families.
type CommandKind string

// KindBulkTransition is the only reversible command kind. Deletion is
// deliberately absent; it never enters the undo queue.
const KindBulkTransition CommandKind = "bulk_transition"

// Command is a serializable description of one applied bulk operation.
type Command struct {
	Kind CommandKind
	SKUs []string
	From pipeline.Status
	To   pipeline.Status
}

// Invert returns the command that reverses cmd. It is pure: the input is not
// modified and no state is consulted.
func Invert(cmd Command) Command {
	return Command{
		Kind: cmd.Kind,
		SKUs: append([]string(nil), cmd.SKUs...),
		From: cmd.To,
		To:   cmd.From,
	}
}

// Executor applies a command against the record store.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (int, error)
}
