package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertBatch records a new consolidation batch in the pending state.
func (s *Store) InsertBatch(ctx context.Context, batch *Batch) error {
	if batch == nil {
		return errors.New("batch is nil")
	}
	if batch.Status == "" {
		batch.Status = BatchPending
	}
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	timestamp := now.Format(time.RFC3339Nano)

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO batches (
            id, status, progress, total_count, processed_count, failed_count,
            skus_json, results_json, error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.Status,
		batch.Progress,
		batch.TotalCount,
		batch.ProcessedCount,
		batch.FailedCount,
		nullableString(batch.SKUsJSON),
		nullableString(batch.ResultsJSON),
		nullableString(batch.ErrorMessage),
		timestamp,
		timestamp,
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetBatch fetches a batch by identifier. A missing row returns (nil, nil).
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// UpdateBatch persists progress and status changes to a batch row.
func (s *Store) UpdateBatch(ctx context.Context, batch *Batch) error {
	if batch == nil {
		return errors.New("batch is nil")
	}
	batch.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE batches
         SET status = ?, progress = ?, total_count = ?, processed_count = ?, failed_count = ?,
             skus_json = ?, results_json = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		batch.Status,
		batch.Progress,
		batch.TotalCount,
		batch.ProcessedCount,
		batch.FailedCount,
		nullableString(batch.SKUsJSON),
		nullableString(batch.ResultsJSON),
		nullableString(batch.ErrorMessage),
		batch.UpdatedAt.Format(time.RFC3339Nano),
		batch.ID,
	); err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// NextPendingBatch claims the oldest pending batch by flipping it to running.
// Returns (nil, nil) when no batch is pending.
func (s *Store) NextPendingBatch(ctx context.Context) (*Batch, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+batchColumns+` FROM batches WHERE status = ? ORDER BY created_at LIMIT 1`,
		BatchPending,
	)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending batch: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE batches SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		BatchRunning, timestamp, batch.ID, BatchPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Another worker claimed it first.
		return nil, nil
	}
	batch.Status = BatchRunning
	return batch, nil
}

// ListBatches returns the most recent batches, newest first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]*Batch, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}
