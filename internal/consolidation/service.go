package consolidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"conveyor/internal/catalog"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
	"conveyor/internal/progress"
)

// ErrNothingToConsolidate rejects a submission whose SKUs are all failed,
// unknown, or absent.
var ErrNothingToConsolidate = errors.New("no eligible products to consolidate")

// ErrBatchNotFound reports an unknown batch id.
var ErrBatchNotFound = errors.New("batch not found")

// batchResults is the persisted outcome of one processed batch.
type batchResults struct {
	Processed []string `json:"processed"`
	Failed    []string `json:"failed"`
	Applied   bool     `json:"applied"`
}

// Service accepts consolidation batches and answers status queries. The
// worker in this package does the actual merging.
type Service struct {
	store  *catalog.Store
	hub    *progress.Hub
	logger *slog.Logger
}

// NewService constructs a Service over the catalog store and progress hub.
func NewService(store *catalog.Store, hub *progress.Hub, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		hub:    hub,
		logger: logging.WithComponent(logger, "consolidation"),
	}
}

// SubmitBatch creates a pending batch for the eligible subset of the given
// SKUs. Failed and unknown SKUs are dropped up front; they would only poison
// the merge.
func (s *Service) SubmitBatch(ctx context.Context, skus []string) (string, error) {
	if len(skus) == 0 {
		return "", ErrNothingToConsolidate
	}

	eligible := make([]string, 0, len(skus))
	for _, sku := range skus {
		product, err := s.store.GetBySKU(ctx, sku)
		if err != nil {
			return "", fmt.Errorf("check product %q: %w", sku, err)
		}
		if product == nil || product.Status == pipeline.StatusFailed {
			continue
		}
		eligible = append(eligible, sku)
	}
	if len(eligible) == 0 {
		return "", ErrNothingToConsolidate
	}

	skusJSON, err := json.Marshal(eligible)
	if err != nil {
		return "", fmt.Errorf("marshal batch skus: %w", err)
	}

	batch := &catalog.Batch{
		ID:         uuid.NewString(),
		Status:     catalog.BatchPending,
		TotalCount: len(eligible),
		SKUsJSON:   string(skusJSON),
	}
	if err := s.store.InsertBatch(ctx, batch); err != nil {
		return "", err
	}

	s.hub.Publish(progress.BatchEvent{BatchID: batch.ID, Progress: 0, Status: catalog.BatchPending})
	s.logger.Info("batch submitted",
		logging.String(logging.FieldBatchID, batch.ID),
		logging.Int("sku_count", len(eligible)))
	return batch.ID, nil
}

// BatchStatus reports the current progress of a batch. It satisfies the
// tracker's polling fallback contract.
func (s *Service) BatchStatus(ctx context.Context, batchID string) (int, catalog.BatchStatus, error) {
	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return 0, "", err
	}
	if batch == nil {
		return 0, "", fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return batch.Progress, batch.Status, nil
}

// ApplyBatch moves a completed batch's processed products into the
// consolidated bucket. It reports true when the move happened, false when
// the batch is not yet completed or was already applied.
func (s *Service) ApplyBatch(ctx context.Context, batchID string) (bool, error) {
	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return false, err
	}
	if batch == nil {
		return false, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if batch.Status != catalog.BatchCompleted {
		return false, nil
	}

	var results batchResults
	if batch.ResultsJSON != "" {
		if err := json.Unmarshal([]byte(batch.ResultsJSON), &results); err != nil {
			return false, fmt.Errorf("parse batch results: %w", err)
		}
	}
	if results.Applied || len(results.Processed) == 0 {
		return false, nil
	}

	if _, err := s.store.BulkSetStatus(ctx, results.Processed, pipeline.StatusConsolidated); err != nil {
		return false, fmt.Errorf("apply batch: %w", err)
	}

	results.Applied = true
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return false, fmt.Errorf("marshal batch results: %w", err)
	}
	batch.ResultsJSON = string(resultsJSON)
	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return false, err
	}

	s.logger.Info("batch applied",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("sku_count", len(results.Processed)))
	return true, nil
}
