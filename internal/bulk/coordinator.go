package bulk

import (
	"context"
	"fmt"
	"log/slog"

	"conveyor/internal/audit"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
	"conveyor/internal/undo"
)

// Store is the subset of catalog writes the coordinator performs.
type Store interface {
	BulkSetStatus(ctx context.Context, skus []string, newStatus pipeline.Status) (int, error)
	DeleteProducts(ctx context.Context, skus []string) (int, error)
}

// UndoSink receives reversible commands for applied transitions.
type UndoSink interface {
	Add(cmd undo.Command) undo.Entry
}

// Coordinator validates and applies bulk review operations.
type Coordinator struct {
	store    Store
	recorder *audit.Recorder
	sink     UndoSink
	logger   *slog.Logger
}

// NewCoordinator constructs a coordinator over the given store and recorder.
// The undo sink is attached separately because the queue executes its
// reverts through the same coordinator.
func NewCoordinator(store Store, recorder *audit.Recorder, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		recorder: recorder,
		logger:   logging.WithComponent(logger, "coordinator"),
	}
}

// AttachUndo wires the undo queue that receives reversible commands.
func (c *Coordinator) AttachUndo(sink UndoSink) {
	c.sink = sink
}

// Request describes one bulk transition.
type Request struct {
	Tab     pipeline.Status
	Action  pipeline.Action
	SKUs    []string
	ActorID string
}

// Result reports an applied bulk transition.
type Result struct {
	UpdatedCount int
	Target       pipeline.Status
	UndoID       string
}

// ApplyBulk validates a request against transition policy, writes the new
// status, enqueues a reversible command, and records audit telemetry in the
// background. Validation and store errors surface to the caller with no
// undo entry; an audit failure never does.
func (c *Coordinator) ApplyBulk(ctx context.Context, req Request) (Result, error) {
	if len(req.SKUs) == 0 {
		return Result{}, ErrEmptySelection
	}
	if req.Tab == pipeline.StatusStaging {
		return Result{}, ErrStagingReadOnly
	}
	target, ok := pipeline.Transition(req.Tab, req.Action)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s from %s", ErrNotAllowed, req.Action, req.Tab)
	}

	updated, err := c.store.BulkSetStatus(ctx, req.SKUs, target)
	if err != nil {
		return Result{}, fmt.Errorf("bulk status write: %w", err)
	}

	result := Result{UpdatedCount: updated, Target: target}
	if c.sink != nil {
		entry := c.sink.Add(undo.Command{
			Kind: undo.KindBulkTransition,
			SKUs: append([]string(nil), req.SKUs...),
			From: req.Tab,
			To:   target,
		})
		result.UndoID = entry.ID
	}

	c.recorder.RecordTransition(audit.TransitionRecord{
		Action:        string(req.Action),
		FromState:     string(req.Tab),
		ToState:       string(target),
		ActorID:       req.ActorID,
		AffectedSKUs:  req.SKUs,
		AffectedCount: updated,
	})

	c.logger.Info("bulk transition applied",
		logging.String("action", string(req.Action)),
		logging.String("to_status", string(target)),
		logging.Int("updated_count", updated))
	return result, nil
}

// Execute applies a command directly, bypassing tab policy. This is the
// revert path: the undo queue hands back the inverse of a command this
// coordinator previously produced. No new undo entry is created.
func (c *Coordinator) Execute(ctx context.Context, cmd undo.Command) (int, error) {
	if len(cmd.SKUs) == 0 {
		return 0, ErrEmptySelection
	}
	updated, err := c.store.BulkSetStatus(ctx, cmd.SKUs, cmd.To)
	if err != nil {
		return 0, fmt.Errorf("bulk status write: %w", err)
	}

	c.recorder.RecordTransition(audit.TransitionRecord{
		Action:        "revert",
		FromState:     string(cmd.From),
		ToState:       string(cmd.To),
		AffectedSKUs:  cmd.SKUs,
		AffectedCount: updated,
	})

	c.logger.Info("bulk transition reverted",
		logging.String("to_status", string(cmd.To)),
		logging.Int("updated_count", updated))
	return updated, nil
}

// DeleteResult reports a bulk delete.
type DeleteResult struct {
	Success      bool
	DeletedCount int
}

// BulkDelete removes products permanently. Deletion never creates an undo
// entry. A failed delete reports success=false with no audit attempt; a
// successful delete reports success=true even if the audit write later fails.
func (c *Coordinator) BulkDelete(ctx context.Context, tab pipeline.Status, skus []string, actorID string) (DeleteResult, error) {
	if len(skus) == 0 {
		return DeleteResult{}, ErrEmptySelection
	}

	deleted, err := c.store.DeleteProducts(ctx, skus)
	if err != nil {
		return DeleteResult{Success: false, DeletedCount: 0}, fmt.Errorf("bulk delete: %w", err)
	}

	c.recorder.RecordDeletion(audit.DeletionRecord{
		FromState:    string(tab),
		ActorID:      actorID,
		DeletedSKUs:  skus,
		DeletedCount: deleted,
	})

	c.logger.Info("bulk delete applied",
		logging.Int("deleted_count", deleted))
	return DeleteResult{Success: true, DeletedCount: deleted}, nil
}
