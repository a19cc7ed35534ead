package api

import (
	"encoding/json"
	"time"

	"conveyor/internal/catalog"
	"conveyor/internal/progress"
	"conveyor/internal/undo"
)

// FromProduct converts a catalog record to its API representation.
func FromProduct(product *catalog.Product) Product {
	if product == nil {
		return Product{}
	}

	dto := Product{
		SKU:          product.SKU,
		Name:         product.Name,
		Brand:        product.Brand,
		Category:     product.Category,
		Status:       string(product.Status),
		Confidence:   product.ConfidenceScore,
		ErrorMessage: product.ErrorMessage,
		RetryCount:   product.RetryCount,
		Input:        rawJSON(product.InputJSON),
		Consolidated: rawJSON(product.ConsolidatedJSON),
		Sources:      rawJSON(product.SourcesJSON),
	}
	dto.CreatedAt = formatTime(product.CreatedAt)
	dto.UpdatedAt = formatTime(product.UpdatedAt)
	return dto
}

// FromListResult converts one listing page.
func FromListResult(result *catalog.ListResult) ProductPage {
	page := ProductPage{Products: []Product{}}
	if result == nil {
		return page
	}
	page.TotalCount = result.TotalCount
	for _, product := range result.Products {
		page.Products = append(page.Products, FromProduct(product))
	}
	return page
}

// FromStatusCounts converts the per-status bucket sizes.
func FromStatusCounts(counts []catalog.StatusCount) []StatusCount {
	out := make([]StatusCount, 0, len(counts))
	for _, count := range counts {
		out = append(out, StatusCount{Status: string(count.Status), Count: count.Count})
	}
	return out
}

// FromBatch converts a consolidation batch record.
func FromBatch(batch *catalog.Batch) Batch {
	if batch == nil {
		return Batch{}
	}
	return Batch{
		ID:             batch.ID,
		Status:         string(batch.Status),
		Progress:       batch.Progress,
		TotalCount:     batch.TotalCount,
		ProcessedCount: batch.ProcessedCount,
		FailedCount:    batch.FailedCount,
		ErrorMessage:   batch.ErrorMessage,
		CreatedAt:      formatTime(batch.CreatedAt),
		UpdatedAt:      formatTime(batch.UpdatedAt),
	}
}

// FromBatchEvent converts one hub event.
func FromBatchEvent(event progress.BatchEvent) BatchEvent {
	return BatchEvent{
		Sequence:  event.Sequence,
		BatchID:   event.BatchID,
		Progress:  event.Progress,
		Status:    string(event.Status),
		Timestamp: formatTime(event.Timestamp),
	}
}

// FromBatchEvents converts a slice of hub events preserving order.
func FromBatchEvents(events []progress.BatchEvent) []BatchEvent {
	out := make([]BatchEvent, 0, len(events))
	for _, event := range events {
		out = append(out, FromBatchEvent(event))
	}
	return out
}

// FromUndoEntry converts a pending undo entry. The remaining window is
// evaluated against the given instant so listings stay consistent.
func FromUndoEntry(entry undo.Entry, now time.Time) UndoEntry {
	return UndoEntry{
		ID:               entry.ID,
		Action:           string(entry.Command.Kind),
		SKUs:             append([]string(nil), entry.Command.SKUs...),
		FromStatus:       string(entry.Command.From),
		ToStatus:         string(entry.Command.To),
		CreatedAt:        formatTime(entry.CreatedAt),
		RemainingSeconds: int(entry.Remaining(now).Seconds()),
	}
}

// FromAuditEntry converts one audit log row.
func FromAuditEntry(entry *catalog.AuditEntry) AuditEntry {
	if entry == nil {
		return AuditEntry{}
	}
	return AuditEntry{
		ID:        entry.ID,
		JobType:   entry.JobType,
		JobID:     entry.JobID,
		FromState: entry.FromState,
		ToState:   entry.ToState,
		ActorID:   entry.ActorID,
		ActorType: entry.ActorType,
		Metadata:  rawJSON(entry.MetadataJSON),
		CreatedAt: formatTime(entry.CreatedAt),
	}
}

func rawJSON(payload string) json.RawMessage {
	if payload == "" || !json.Valid([]byte(payload)) {
		return nil
	}
	return json.RawMessage(payload)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(dateTimeFormat)
}
