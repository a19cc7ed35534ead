package catalog

import (
	"strings"
	"time"

	"conveyor/internal/pipeline"
)

// Product represents a catalog row persisted in SQLite.
type Product struct {
	SKU              string
	Name             string
	Brand            string
	Category         string
	InputJSON        string
	ConsolidatedJSON string
	SourcesJSON      string
	Status           pipeline.Status
	ConfidenceScore  float64
	ErrorMessage     string
	RetryCount       int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StatusCount pairs a pipeline status with its current row count.
type StatusCount struct {
	Status pipeline.Status
	Count  int
}

// ListFilters narrows product listings beyond the status tab.
type ListFilters struct {
	Search        string
	Brand         string
	Category      string
	MinConfidence float64
}

func (f ListFilters) normalized() ListFilters {
	f.Search = strings.TrimSpace(f.Search)
	f.Brand = strings.TrimSpace(f.Brand)
	f.Category = strings.TrimSpace(f.Category)
	return f
}

// ListResult is one page of products plus the total match count.
type ListResult struct {
	Products   []*Product
	TotalCount int
}

// MatchResult is the full SKU set matching a status and filters.
type MatchResult struct {
	SKUs  []string
	Count int
}

// AuditEntry is one append-only audit log row.
type AuditEntry struct {
	ID           int64
	JobType      string
	JobID        string
	FromState    string
	ToState      string
	ActorID      string
	ActorType    string
	MetadataJSON string
	CreatedAt    time.Time
}

// BatchStatus represents the lifecycle of a consolidation batch.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// IsTerminal reports whether the batch accepts no further progress updates.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchCompleted || s == BatchFailed
}

// Batch represents a consolidation batch persisted in SQLite.
type Batch struct {
	ID             string
	Status         BatchStatus
	Progress       int
	TotalCount     int
	ProcessedCount int
	FailedCount    int
	SKUsJSON       string
	ResultsJSON    string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
