package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"conveyor/internal/catalog"
	"conveyor/internal/logging"
)

// Store is the subset of catalog persistence the recorder needs.
type Store interface {
	AppendAudit(ctx context.Context, entry *catalog.AuditEntry) error
}

// JobTypeDeletion labels audit rows written for bulk deletions.
const JobTypeDeletion = "product_deletion"

// Recorder appends audit entries asynchronously.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logging.WithComponent(logger, "audit"),
		timeout: 10 * time.Second,
	}
}

// TransitionRecord describes one applied bulk status change.
type TransitionRecord struct {
	Action        string
	FromState     string
	ToState       string
	ActorID       string
	AffectedSKUs  []string
	AffectedCount int
}

// DeletionRecord describes one applied bulk delete.
type DeletionRecord struct {
	FromState    string
	ActorID      string
	DeletedSKUs  []string
	DeletedCount int
}

// RecordTransition writes a bulk transition audit row in the background.
// The job type is derived from the action name.
func (r *Recorder) RecordTransition(record TransitionRecord) {
	metadata := map[string]any{
		"affected_skus":  record.AffectedSKUs,
		"affected_count": record.AffectedCount,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	r.append(&catalog.AuditEntry{
		JobType:   "bulk_" + record.Action,
		JobID:     uuid.NewString(),
		FromState: record.FromState,
		ToState:   record.ToState,
		ActorID:   record.ActorID,
		ActorType: actorType(record.ActorID),
	}, metadata)
}

// RecordDeletion writes a bulk delete audit row in the background.
func (r *Recorder) RecordDeletion(record DeletionRecord) {
	metadata := map[string]any{
		"deleted_skus":  record.DeletedSKUs,
		"deleted_count": record.DeletedCount,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
	r.append(&catalog.AuditEntry{
		JobType:   JobTypeDeletion,
		JobID:     uuid.NewString(),
		FromState: record.FromState,
		ToState:   "deleted",
		ActorID:   record.ActorID,
		ActorType: actorType(record.ActorID),
	}, metadata)
}

func (r *Recorder) append(entry *catalog.AuditEntry, metadata map[string]any) {
	payload, err := json.Marshal(metadata)
	if err != nil {
		r.logger.Warn("marshal audit metadata failed", logging.Error(err))
	} else {
		entry.MetadataJSON = string(payload)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.store.AppendAudit(ctx, entry); err != nil {
			r.logger.Warn("audit write failed",
				logging.String("job_type", entry.JobType),
				logging.String("job_id", entry.JobID),
				logging.Error(err))
		}
	}()
}

// Wait blocks until all in-flight audit writes have finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

func actorType(actorID string) string {
	if actorID != "" {
		return "user"
	}
	return "system"
}
