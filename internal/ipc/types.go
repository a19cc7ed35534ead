package ipc

import "conveyor/internal/api"

// Product mirrors the HTTP API product DTO for internal IPC callers.
type Product = api.Product

// StatusCount mirrors the HTTP API count DTO.
type StatusCount = api.StatusCount

// Batch mirrors the HTTP API batch DTO.
type Batch = api.Batch

// BatchEvent mirrors the HTTP API event DTO.
type BatchEvent = api.BatchEvent

// UndoEntry mirrors the HTTP API undo DTO.
type UndoEntry = api.UndoEntry

// AuditEntry mirrors the HTTP API audit DTO.
type AuditEntry = api.AuditEntry

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	DatabasePath string        `json:"database_path"`
	LockPath     string        `json:"lock_path"`
	StartedAt    string        `json:"started_at,omitempty"`
	StatusCounts []StatusCount `json:"status_counts"`
	APIAddr      string        `json:"api_addr,omitempty"`
}

// ProductListRequest pages one status tab with optional filters.
type ProductListRequest struct {
	Status        string  `json:"status"`
	Search        string  `json:"search,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Category      string  `json:"category,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
	Offset        int     `json:"offset"`
	Limit         int     `json:"limit"`
}

// ProductListResponse contains one page plus the total match count.
type ProductListResponse struct {
	Products   []Product `json:"products"`
	TotalCount int       `json:"total_count"`
}

// ProductDescribeRequest fetches a single product by SKU.
type ProductDescribeRequest struct {
	SKU string `json:"sku"`
}

// ProductDescribeResponse contains a single product.
type ProductDescribeResponse struct {
	Product Product `json:"product"`
}

// StatusCountsRequest fetches per-status bucket sizes.
type StatusCountsRequest struct{}

// StatusCountsResponse contains the bucket sizes in pipeline order.
type StatusCountsResponse struct {
	Counts []StatusCount `json:"counts"`
}

// BulkTransitionRequest applies a pipeline action to an explicit SKU set.
type BulkTransitionRequest struct {
	Tab    string   `json:"tab"`
	Action string   `json:"action"`
	SKUs   []string `json:"skus"`
	Actor  string   `json:"actor,omitempty"`
}

// BulkTransitionResponse reports the write outcome and the undo handle.
type BulkTransitionResponse struct {
	UpdatedCount int    `json:"updated_count"`
	TargetStatus string `json:"target_status"`
	UndoID       string `json:"undo_id,omitempty"`
}

// BulkDeleteRequest permanently removes an explicit SKU set.
type BulkDeleteRequest struct {
	Tab   string   `json:"tab"`
	SKUs  []string `json:"skus"`
	Actor string   `json:"actor,omitempty"`
}

// BulkDeleteResponse reports the deletion outcome.
type BulkDeleteResponse struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deleted_count"`
}

// UndoListRequest lists pending reversible operations.
type UndoListRequest struct{}

// UndoListResponse contains pending entries oldest first.
type UndoListResponse struct {
	Entries []UndoEntry `json:"entries"`
}

// UndoRevertRequest reverts one pending entry.
type UndoRevertRequest struct {
	ID string `json:"id"`
}

// UndoRevertResponse indicates revert result.
type UndoRevertResponse struct {
	Reverted bool `json:"reverted"`
}

// BatchSubmitRequest enqueues a consolidation batch.
type BatchSubmitRequest struct {
	SKUs []string `json:"skus"`
}

// BatchSubmitResponse carries the new batch id.
type BatchSubmitResponse struct {
	BatchID string `json:"batch_id"`
}

// BatchDescribeRequest fetches a single batch by id.
type BatchDescribeRequest struct {
	ID string `json:"id"`
}

// BatchDescribeResponse contains a single batch.
type BatchDescribeResponse struct {
	Batch Batch `json:"batch"`
}

// BatchApplyRequest promotes a completed batch's products.
type BatchApplyRequest struct {
	ID string `json:"id"`
}

// BatchApplyResponse reports whether the apply took effect.
type BatchApplyResponse struct {
	Applied bool `json:"applied"`
}

// BatchListRequest lists recent batches.
type BatchListRequest struct {
	Limit int `json:"limit"`
}

// BatchListResponse contains batches newest first.
type BatchListResponse struct {
	Batches []Batch `json:"batches"`
}

// ProductRetryRequest moves a failed product back into the pipeline.
type ProductRetryRequest struct {
	SKU string `json:"sku"`
}

// ProductRetryResponse indicates retry result.
type ProductRetryResponse struct {
	Retried bool `json:"retried"`
}

// AuditListRequest lists recent audit entries.
type AuditListRequest struct {
	Limit int `json:"limit"`
}

// AuditListResponse contains audit entries newest first.
type AuditListResponse struct {
	Entries []AuditEntry `json:"entries"`
}

// SessionOpenRequest creates a review session for one operator connection.
type SessionOpenRequest struct {
	Actor string `json:"actor,omitempty"`
}

// SessionOpenResponse carries the new session id.
type SessionOpenResponse struct {
	SessionID string `json:"session_id"`
}

// SessionCloseRequest releases a review session.
type SessionCloseRequest struct {
	SessionID string `json:"session_id"`
}

// SessionCloseResponse indicates close result.
type SessionCloseResponse struct {
	Closed bool `json:"closed"`
}

// SessionFilterRequest switches a session's active tab and filters. Any
// change clears the selection.
type SessionFilterRequest struct {
	SessionID     string  `json:"session_id"`
	Status        string  `json:"status"`
	Search        string  `json:"search,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Category      string  `json:"category,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// SessionFilterResponse acknowledges the filter change.
type SessionFilterResponse struct{}

// SessionPageRequest lists one page of the session's active tab and records
// the visible SKUs for range selection.
type SessionPageRequest struct {
	SessionID string `json:"session_id"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
}

// SessionPageResponse contains one page plus the current selection.
type SessionPageResponse struct {
	Products   []Product `json:"products"`
	TotalCount int       `json:"total_count"`
	Selected   []string  `json:"selected"`
}

// SessionToggleRequest flips selection membership of one visible SKU.
type SessionToggleRequest struct {
	SessionID string `json:"session_id"`
	SKU       string `json:"sku"`
	Index     int    `json:"index"`
	Range     bool   `json:"range"`
}

// SessionToggleResponse reports the selection size after the toggle.
type SessionToggleResponse struct {
	SelectedCount int `json:"selected_count"`
}

// SessionToggleAllRequest selects or clears the session's current page.
type SessionToggleAllRequest struct {
	SessionID string `json:"session_id"`
}

// SessionToggleAllResponse reports the selection size after the toggle.
type SessionToggleAllResponse struct {
	SelectedCount int `json:"selected_count"`
}

// SessionSelectAllRequest materializes every SKU matching the session's
// filters as the selection.
type SessionSelectAllRequest struct {
	SessionID string `json:"session_id"`
}

// SessionSelectAllResponse reports the materialized selection size.
type SessionSelectAllResponse struct {
	SelectedCount int `json:"selected_count"`
}

// SessionApplyRequest runs a bulk action against the session's selection.
type SessionApplyRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
}

// SessionApplyResponse reports the write outcome and the undo handle. The
// undo entry lives in the session's own queue.
type SessionApplyResponse struct {
	UpdatedCount int    `json:"updated_count"`
	TargetStatus string `json:"target_status"`
	UndoID       string `json:"undo_id,omitempty"`
}

// SessionDeleteRequest permanently removes the session's selection.
type SessionDeleteRequest struct {
	SessionID string `json:"session_id"`
}

// SessionDeleteResponse reports the deletion outcome.
type SessionDeleteResponse struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deleted_count"`
}

// SessionConsolidateRequest submits the session's selection as a
// consolidation batch and subscribes the session's tracker to it.
type SessionConsolidateRequest struct {
	SessionID string `json:"session_id"`
}

// SessionConsolidateResponse carries the new batch id.
type SessionConsolidateResponse struct {
	BatchID string `json:"batch_id"`
}

// SessionUndoListRequest lists the session's pending reversible operations.
type SessionUndoListRequest struct {
	SessionID string `json:"session_id"`
}

// SessionUndoListResponse contains pending entries oldest first.
type SessionUndoListResponse struct {
	Entries []UndoEntry `json:"entries"`
}

// SessionUndoRevertRequest reverts one pending entry in the session's queue.
type SessionUndoRevertRequest struct {
	SessionID string `json:"session_id"`
	ID        string `json:"id"`
}

// SessionUndoRevertResponse indicates revert result.
type SessionUndoRevertResponse struct {
	Reverted bool `json:"reverted"`
}

// SessionBatchStateRequest reads the tracked progress of a subscribed batch.
type SessionBatchStateRequest struct {
	SessionID string `json:"session_id"`
	BatchID   string `json:"batch_id"`
}

// SessionBatchStateResponse reports the tracked state plus how updates are
// currently delivered to the session's tracker.
type SessionBatchStateResponse struct {
	Known            bool   `json:"known"`
	Progress         int    `json:"progress"`
	Status           string `json:"status"`
	Terminal         bool   `json:"terminal"`
	ConnectionStatus string `json:"connection_status"`
}

// EventsRequest fetches progress events past a cursor. WaitMillis greater
// than zero long-polls for new events up to that duration.
type EventsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	WaitMillis int    `json:"wait_millis"`
}

// EventsResponse contains events and the next cursor.
type EventsResponse struct {
	Events       []BatchEvent `json:"events"`
	NextSequence uint64       `json:"next_sequence"`
}
