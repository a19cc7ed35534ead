package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Product describes a catalog record in a transport-friendly format.
type Product struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	Category     string          `json:"category,omitempty"`
	Status       string          `json:"status"`
	Confidence   float64         `json:"confidence"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	RetryCount   int             `json:"retryCount,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Consolidated json.RawMessage `json:"consolidated,omitempty"`
	Sources      json.RawMessage `json:"sources,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// ProductPage is one page of products plus the total match count.
type ProductPage struct {
	Products   []Product `json:"products"`
	TotalCount int       `json:"totalCount"`
}

// StatusCount pairs a pipeline status with its current row count.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Batch describes a consolidation batch with its progress percentage.
type Batch struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	TotalCount     int    `json:"totalCount"`
	ProcessedCount int    `json:"processedCount"`
	FailedCount    int    `json:"failedCount"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// BatchEvent is one progress update in the event stream.
type BatchEvent struct {
	Sequence  uint64 `json:"sequence"`
	BatchID   string `json:"batchId"`
	Progress  int    `json:"progress"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// EventStreamResponse is a page of progress events for long-poll consumers.
type EventStreamResponse struct {
	Events       []BatchEvent `json:"events"`
	NextSequence uint64       `json:"nextSequence"`
}

// UndoEntry describes a pending reversible bulk operation.
type UndoEntry struct {
	ID               string   `json:"id"`
	Action           string   `json:"action"`
	SKUs             []string `json:"skus"`
	FromStatus       string   `json:"fromStatus"`
	ToStatus         string   `json:"toStatus"`
	CreatedAt        string   `json:"createdAt"`
	RemainingSeconds int      `json:"remainingSeconds"`
}

// AuditEntry describes one append-only audit log row.
type AuditEntry struct {
	ID        int64           `json:"id"`
	JobType   string          `json:"jobType"`
	JobID     string          `json:"jobId,omitempty"`
	FromState string          `json:"fromState,omitempty"`
	ToState   string          `json:"toState,omitempty"`
	ActorID   string          `json:"actorId,omitempty"`
	ActorType string          `json:"actorType"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"createdAt,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	Version      string        `json:"version,omitempty"`
	DatabasePath string        `json:"databasePath"`
	StartedAt    string        `json:"startedAt,omitempty"`
	StatusCounts []StatusCount `json:"statusCounts,omitempty"`
	WorkerActive bool          `json:"workerActive"`
}

// BulkTransitionResult reports the outcome of a bulk status change.
type BulkTransitionResult struct {
	UpdatedCount int    `json:"updatedCount"`
	TargetStatus string `json:"targetStatus"`
	UndoID       string `json:"undoId,omitempty"`
}

// BulkDeleteResult reports the outcome of a bulk deletion.
type BulkDeleteResult struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deletedCount"`
}
