package consolidation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"conveyor/internal/catalog"
	"conveyor/internal/config"
	"conveyor/internal/logging"
	"conveyor/internal/progress"
)

// mergeConcurrency bounds how many products of one batch are merged at once.
const mergeConcurrency = 4

// Worker claims pending batches and merges each product's payloads into a
// normalized record, reporting progress through the hub as it goes.
type Worker struct {
	store         *catalog.Store
	hub           *progress.Hub
	priority      []string
	minConfidence float64
	pollInterval  time.Duration
	logger        *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs a Worker from the consolidation config section.
func NewWorker(store *catalog.Store, hub *progress.Hub, cfg config.Consolidation, logger *slog.Logger) *Worker {
	interval := time.Duration(cfg.WorkerPollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Worker{
		store:         store,
		hub:           hub,
		priority:      cfg.SourcePriority,
		minConfidence: cfg.MinConfidence,
		pollInterval:  interval,
		logger:        logging.WithComponent(logger, "consolidation-worker"),
	}
}

// Start launches the polling loop.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.drain(ctx)
			}
		}
	}()
}

// Close stops the polling loop and waits for in-flight work.
func (w *Worker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		batch, err := w.store.NextPendingBatch(ctx)
		if err != nil {
			w.logger.Error("claim batch failed", logging.Error(err))
			return
		}
		if batch == nil {
			return
		}
		w.process(ctx, batch)
	}
}

func (w *Worker) process(ctx context.Context, batch *catalog.Batch) {
	w.logger.Info("batch started",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.Int("sku_count", batch.TotalCount))
	w.publish(batch, catalog.BatchRunning)

	var skus []string
	if err := json.Unmarshal([]byte(batch.SKUsJSON), &skus); err != nil {
		w.fail(ctx, batch, fmt.Errorf("parse batch skus: %w", err))
		return
	}

	var (
		mu      sync.Mutex
		results batchResults
		done    int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(mergeConcurrency)
	for _, sku := range skus {
		sku := sku
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			err := w.consolidateProduct(groupCtx, sku)
			if err != nil {
				w.logger.Warn("product consolidation failed",
					logging.String(logging.FieldSKU, sku),
					logging.Error(err))
				if markErr := w.store.MarkProductFailed(groupCtx, sku, err.Error()); markErr != nil {
					w.logger.Error("mark product failed", logging.Error(markErr))
				}
			}

			mu.Lock()
			if err != nil {
				results.Failed = append(results.Failed, sku)
			} else {
				results.Processed = append(results.Processed, sku)
			}
			done++
			batch.ProcessedCount = len(results.Processed)
			batch.FailedCount = len(results.Failed)
			batch.Progress = done * 100 / len(skus)
			snapshot := *batch
			mu.Unlock()

			if err := w.store.UpdateBatch(groupCtx, &snapshot); err != nil {
				w.logger.Error("update batch progress failed", logging.Error(err))
			}
			w.publish(&snapshot, catalog.BatchRunning)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return
	}

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		w.fail(ctx, batch, fmt.Errorf("marshal batch results: %w", err))
		return
	}
	batch.ResultsJSON = string(resultsJSON)
	batch.Progress = 100

	final := catalog.BatchCompleted
	if len(results.Processed) == 0 {
		final = catalog.BatchFailed
		batch.ErrorMessage = "all products in batch failed"
	}
	batch.Status = final
	if err := w.store.UpdateBatch(ctx, batch); err != nil {
		w.logger.Error("finalize batch failed", logging.Error(err))
	}
	w.publish(batch, final)
	w.logger.Info("batch finished",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.String("status", string(final)),
		logging.Int("processed", batch.ProcessedCount),
		logging.Int("failed", batch.FailedCount))
}

func (w *Worker) consolidateProduct(ctx context.Context, sku string) error {
	product, err := w.store.GetBySKU(ctx, sku)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("product %q vanished", sku)
	}

	merged, err := merge(product.InputJSON, product.SourcesJSON, w.priority)
	if err != nil {
		return err
	}
	if len(merged.Fields) == 0 {
		return fmt.Errorf("no payload to consolidate")
	}

	consolidatedJSON, err := json.Marshal(merged.Fields)
	if err != nil {
		return fmt.Errorf("marshal consolidated record: %w", err)
	}

	product.ConsolidatedJSON = string(consolidatedJSON)
	product.ConfidenceScore = merged.Confidence
	if brand, ok := merged.Fields["brand"].(string); ok {
		product.Brand = brand
	}
	if name, ok := merged.Fields["name"].(string); ok {
		product.Name = name
	}
	if merged.Confidence < w.minConfidence {
		w.logger.Warn("low confidence merge",
			logging.String(logging.FieldSKU, sku),
			logging.Float64("confidence", merged.Confidence))
	}
	return w.store.UpdateProduct(ctx, product)
}

func (w *Worker) fail(ctx context.Context, batch *catalog.Batch, cause error) {
	w.logger.Error("batch failed",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.Error(cause))
	batch.Status = catalog.BatchFailed
	batch.Progress = 100
	batch.ErrorMessage = cause.Error()
	if err := w.store.UpdateBatch(ctx, batch); err != nil {
		w.logger.Error("finalize failed batch", logging.Error(err))
	}
	w.publish(batch, catalog.BatchFailed)
}

func (w *Worker) publish(batch *catalog.Batch, status catalog.BatchStatus) {
	w.hub.Publish(progress.BatchEvent{
		BatchID:  batch.ID,
		Progress: batch.Progress,
		Status:   status,
	})
}
