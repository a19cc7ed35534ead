package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"conveyor/internal/audit"
	"conveyor/internal/bulk"
	"conveyor/internal/catalog"
	"conveyor/internal/config"
	"conveyor/internal/consolidation"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
	"conveyor/internal/progress"
	"conveyor/internal/undo"
)

// Daemon coordinates the shared services and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store       *catalog.Store
	hub         *progress.Hub
	recorder    *audit.Recorder
	service     *consolidation.Service
	worker      *consolidation.Worker
	coordinator *bulk.Coordinator
	undoQueue   *undo.Queue
	api         *apiServer

	lockPath string
	lock     *flock.Flock

	sessions *sessionSet

	running   atomic.Bool
	startedAt time.Time
	runCtx    context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	StartedAt    time.Time
	StatusCounts []catalog.StatusCount
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	hub := progress.NewHub(cfg.Progress.EventBuffer)
	recorder := audit.NewRecorder(store, logger)
	coordinator := bulk.NewCoordinator(store, recorder, logger)
	undoQueue := undo.NewQueue(coordinator, logger)
	coordinator.AttachUndo(undoQueue)

	d := &Daemon{
		cfg:         cfg,
		logger:      logging.WithComponent(logger, "daemon"),
		store:       store,
		hub:         hub,
		recorder:    recorder,
		service:     consolidation.NewService(store, hub, logger),
		worker:      consolidation.NewWorker(store, hub, cfg.Consolidation, logger),
		coordinator: coordinator,
		undoQueue:   undoQueue,
		sessions:    newSessionSet(),
		lockPath:    cfg.LockPath(),
		lock:        flock.New(cfg.LockPath()),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the consolidation worker and
// the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another conveyor daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.runCtx = runCtx
	d.cancel = cancel
	d.worker.Start(runCtx)

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.worker.Close()
			cancel()
			d.cancel = nil
			_ = d.lock.Unlock()
			return err
		}
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("conveyor daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock. Pending
// audit writes are flushed before return.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	for _, session := range d.sessions.drain() {
		session.Close()
	}
	if d.api != nil {
		d.api.stop()
	}
	d.worker.Close()
	d.recorder.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("conveyor daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status including catalog bucket sizes.
func (d *Daemon) Status(ctx context.Context) Status {
	counts, err := d.store.StatusCounts(ctx)
	if err != nil {
		d.logger.Warn("status counts unavailable", logging.Error(err))
		counts = nil
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		StartedAt:    d.startedAt,
		StatusCounts: counts,
	}
}

// APIAddr reports the bound HTTP API address, empty when the API is disabled
// or not yet listening.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Hub exposes the progress event hub to transport layers.
func (d *Daemon) Hub() *progress.Hub {
	return d.hub
}

// ListProducts returns one page of the given status tab.
func (d *Daemon) ListProducts(ctx context.Context, status pipeline.Status, filters catalog.ListFilters, offset, limit int) (*catalog.ListResult, error) {
	return d.store.ListProducts(ctx, status, filters, offset, limit)
}

// GetProduct returns a single product, nil when absent.
func (d *Daemon) GetProduct(ctx context.Context, sku string) (*catalog.Product, error) {
	return d.store.GetBySKU(ctx, sku)
}

// StatusCounts returns per-status bucket sizes.
func (d *Daemon) StatusCounts(ctx context.Context) ([]catalog.StatusCount, error) {
	return d.store.StatusCounts(ctx)
}

// BulkTransition applies a pipeline action to an explicit SKU set.
func (d *Daemon) BulkTransition(ctx context.Context, req bulk.Request) (bulk.Result, error) {
	return d.coordinator.ApplyBulk(ctx, req)
}

// BulkDelete permanently removes an explicit SKU set.
func (d *Daemon) BulkDelete(ctx context.Context, tab pipeline.Status, skus []string, actorID string) (bulk.DeleteResult, error) {
	return d.coordinator.BulkDelete(ctx, tab, skus, actorID)
}

// UndoEntries lists pending reversible operations.
func (d *Daemon) UndoEntries() []undo.Entry {
	return d.undoQueue.Entries()
}

// RevertUndo executes the inverse of a pending undo entry.
func (d *Daemon) RevertUndo(ctx context.Context, entryID string) error {
	return d.undoQueue.Revert(ctx, entryID)
}

// SubmitBatch enqueues a consolidation batch for the worker.
func (d *Daemon) SubmitBatch(ctx context.Context, skus []string) (string, error) {
	return d.service.SubmitBatch(ctx, skus)
}

// ApplyBatch promotes a completed batch's products to consolidated.
func (d *Daemon) ApplyBatch(ctx context.Context, batchID string) (bool, error) {
	return d.service.ApplyBatch(ctx, batchID)
}

// GetBatch returns one batch record, nil when absent.
func (d *Daemon) GetBatch(ctx context.Context, batchID string) (*catalog.Batch, error) {
	return d.store.GetBatch(ctx, batchID)
}

// ListBatches returns recent batches newest first.
func (d *Daemon) ListBatches(ctx context.Context, limit int) ([]*catalog.Batch, error) {
	return d.store.ListBatches(ctx, limit)
}

// ListAudit returns recent audit entries newest first.
func (d *Daemon) ListAudit(ctx context.Context, limit int) ([]*catalog.AuditEntry, error) {
	return d.store.ListAudit(ctx, limit)
}

// RetryProduct moves a failed product back to scraped so it can re-enter
// consolidation. This is the only path out of the failed bucket.
func (d *Daemon) RetryProduct(ctx context.Context, sku string) error {
	product, err := d.store.GetBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("product %q not found", sku)
	}
	if product.Status != pipeline.StatusFailed {
		return fmt.Errorf("product %q is %s, only failed products can be retried", sku, product.Status)
	}
	if err := d.store.SetProductStatus(ctx, sku, pipeline.StatusScraped); err != nil {
		return err
	}
	d.logger.Info("failed product retried", logging.String(logging.FieldSKU, sku))
	return nil
}
