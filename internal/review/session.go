package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"conveyor/internal/audit"
	"conveyor/internal/bulk"
	"conveyor/internal/catalog"
	"conveyor/internal/config"
	"conveyor/internal/consolidation"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
	"conveyor/internal/progress"
	"conveyor/internal/selection"
	"conveyor/internal/undo"
)

// Session is the single mutator for one client's review state. All state
// changes go through its methods; the embedded mutex keeps concurrent IPC
// calls from interleaving mid-operation.
type Session struct {
	mu sync.Mutex

	id          string
	store       *catalog.Store
	coordinator *bulk.Coordinator
	queue       *undo.Queue
	selection   *selection.Model
	tracker     *progress.Tracker
	service     *consolidation.Service
	actorID     string
	logger      *slog.Logger
}

// Deps bundles the shared collaborators a session builds on.
type Deps struct {
	Store    *catalog.Store
	Recorder *audit.Recorder
	Service  *consolidation.Service
	Hub      *progress.Hub
	Config   *config.Config
	Logger   *slog.Logger
}

// NewSession builds a session with its own selection, undo queue, and batch
// tracker. actorID attributes this session's operations in the audit log;
// empty means system.
func NewSession(ctx context.Context, deps Deps, actorID string) *Session {
	coordinator := bulk.NewCoordinator(deps.Store, deps.Recorder, deps.Logger)
	queue := undo.NewQueue(coordinator, deps.Logger)
	coordinator.AttachUndo(queue)

	session := &Session{
		id:          uuid.NewString(),
		store:       deps.Store,
		coordinator: coordinator,
		queue:       queue,
		selection:   selection.NewModel(pipeline.StatusStaging),
		service:     deps.Service,
		actorID:     actorID,
		logger:      logging.WithComponent(deps.Logger, "session"),
	}

	pollInterval := 5
	reconnectMax := 30
	if deps.Config != nil {
		pollInterval = deps.Config.Progress.PollInterval
		reconnectMax = deps.Config.Progress.ReconnectMaxElapsed
	}
	session.tracker = progress.NewTracker(deps.Hub, deps.Service, progress.Options{
		PollInterval:        secondsDuration(pollInterval),
		ReconnectMaxElapsed: secondsDuration(reconnectMax),
		Logger:              deps.Logger,
	})
	session.tracker.Connect(ctx)
	return session
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Close releases the session's tracker.
func (s *Session) Close() {
	s.tracker.Close()
}

// SetFilter switches the active tab and filters. Any change clears the
// selection.
func (s *Session) SetFilter(status pipeline.Status, filters catalog.ListFilters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.SetFilter(status, filters)
}

// Page lists one page of the active tab and records the visible SKUs for
// range selection.
func (s *Session) Page(ctx context.Context, offset, limit int) (*catalog.ListResult, error) {
	s.mu.Lock()
	status := s.selection.Status()
	filters := s.selection.Filters()
	s.mu.Unlock()

	result, err := s.store.ListProducts(ctx, status, filters, offset, limit)
	if err != nil {
		return nil, err
	}

	skus := make([]string, 0, len(result.Products))
	for _, product := range result.Products {
		skus = append(skus, product.SKU)
	}
	s.mu.Lock()
	s.selection.SetVisible(skus)
	s.mu.Unlock()
	return result, nil
}

// Counts reports the per-status bucket sizes.
func (s *Session) Counts(ctx context.Context) ([]catalog.StatusCount, error) {
	return s.store.StatusCounts(ctx)
}

// Toggle flips selection membership of one visible SKU.
func (s *Session) Toggle(sku string, index int, rangeModifier bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Toggle(sku, index, rangeModifier)
}

// ToggleAllVisible selects or clears the current page.
func (s *Session) ToggleAllVisible() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.ToggleAllVisible()
}

// SelectAllMatching materializes the full matching SKU set as the selection.
func (s *Session) SelectAllMatching(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.SelectAllMatching(ctx, s.store)
}

// Selection returns the selected SKUs.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Selected()
}

// Apply runs a bulk action against the current selection. On success the
// selection is cleared; on any failure it is left exactly as it was.
func (s *Session) Apply(ctx context.Context, action pipeline.Action) (bulk.Result, error) {
	s.mu.Lock()
	req := bulk.Request{
		Tab:     s.selection.Status(),
		Action:  action,
		SKUs:    s.selection.Selected(),
		ActorID: s.actorID,
	}
	s.mu.Unlock()

	result, err := s.coordinator.ApplyBulk(ctx, req)
	if err != nil {
		return result, err
	}

	s.mu.Lock()
	s.selection.Clear()
	s.mu.Unlock()
	return result, nil
}

// Delete permanently removes the current selection.
func (s *Session) Delete(ctx context.Context) (bulk.DeleteResult, error) {
	s.mu.Lock()
	tab := s.selection.Status()
	skus := s.selection.Selected()
	s.mu.Unlock()

	result, err := s.coordinator.BulkDelete(ctx, tab, skus, s.actorID)
	if err != nil {
		return result, err
	}

	s.mu.Lock()
	s.selection.Clear()
	s.mu.Unlock()
	return result, nil
}

// UndoEntries lists the pending undo entries.
func (s *Session) UndoEntries() []undo.Entry {
	return s.queue.Entries()
}

// Revert executes the inverse of a pending undo entry.
func (s *Session) Revert(ctx context.Context, entryID string) error {
	return s.queue.Revert(ctx, entryID)
}

// Consolidate submits the current selection as a consolidation batch and
// subscribes the tracker to it. The selection is cleared on success.
func (s *Session) Consolidate(ctx context.Context) (string, error) {
	s.mu.Lock()
	skus := s.selection.Selected()
	s.mu.Unlock()

	if len(skus) == 0 {
		return "", bulk.ErrEmptySelection
	}

	batchID, err := s.service.SubmitBatch(ctx, skus)
	if err != nil {
		return "", fmt.Errorf("submit batch: %w", err)
	}
	s.tracker.SubscribeToBatch(batchID)

	s.mu.Lock()
	s.selection.Clear()
	s.mu.Unlock()

	s.logger.Info("consolidation submitted",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("sku_count", len(skus)))
	return batchID, nil
}

// BatchState returns the tracked progress of a subscribed batch.
func (s *Session) BatchState(batchID string) (progress.BatchState, bool) {
	return s.tracker.Snapshot(batchID)
}

// UnsubscribeFromBatch drops a tracked batch.
func (s *Session) UnsubscribeFromBatch(batchID string) {
	s.tracker.UnsubscribeFromBatch(batchID)
}

// ConnectionStatus reports how batch progress currently arrives.
func (s *Session) ConnectionStatus() progress.ConnectionStatus {
	return s.tracker.ConnectionStatus()
}

func secondsDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
