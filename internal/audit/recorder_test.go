package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"conveyor/internal/audit"
	"conveyor/internal/catalog"
	"conveyor/internal/logging"
)

type captureStore struct {
	mu      sync.Mutex
	entries []*catalog.AuditEntry
	err     error
}

func (c *captureStore) AppendAudit(_ context.Context, entry *catalog.AuditEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries = append(c.entries, entry)
	return nil
}

func (c *captureStore) snapshot() []*catalog.AuditEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*catalog.AuditEntry(nil), c.entries...)
}

func TestRecordTransitionWritesEntry(t *testing.T) {
	store := &captureStore{}
	recorder := audit.NewRecorder(store, logging.NewNop())

	recorder.RecordTransition(audit.TransitionRecord{
		Action:        "approve",
		FromState:     "various",
		ToState:       "approved",
		ActorID:       "user-7",
		AffectedSKUs:  []string{"SKU-1", "SKU-2"},
		AffectedCount: 2,
	})
	recorder.Wait()

	entries := store.snapshot()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.JobType != "bulk_approve" {
		t.Fatalf("job type = %q", entry.JobType)
	}
	if entry.JobID == "" {
		t.Fatal("expected a job id")
	}
	if entry.ActorType != "user" || entry.ActorID != "user-7" {
		t.Fatalf("actor fields = %q/%q", entry.ActorType, entry.ActorID)
	}

	var metadata map[string]any
	if err := json.Unmarshal([]byte(entry.MetadataJSON), &metadata); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}
	if metadata["affected_count"].(float64) != 2 {
		t.Fatalf("affected_count = %v", metadata["affected_count"])
	}
	if _, ok := metadata["timestamp"]; !ok {
		t.Fatal("metadata missing timestamp")
	}
}

func TestRecordDeletionUsesSystemActorWithoutID(t *testing.T) {
	store := &captureStore{}
	recorder := audit.NewRecorder(store, logging.NewNop())

	recorder.RecordDeletion(audit.DeletionRecord{
		FromState:    "staging",
		DeletedSKUs:  []string{"SKU-9"},
		DeletedCount: 1,
	})
	recorder.Wait()

	entries := store.snapshot()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ActorType != "system" || entries[0].ActorID != "" {
		t.Fatalf("actor fields = %q/%q", entries[0].ActorType, entries[0].ActorID)
	}
	if entries[0].ToState != "deleted" || entries[0].JobType != audit.JobTypeDeletion {
		t.Fatalf("unexpected entry: %#v", entries[0])
	}
}

func TestWriteFailureDoesNotPanicOrBlock(t *testing.T) {
	store := &captureStore{err: errors.New("disk full")}
	recorder := audit.NewRecorder(store, logging.NewNop())

	recorder.RecordTransition(audit.TransitionRecord{Action: "approve", ToState: "approved", AffectedCount: 1})
	recorder.Wait()

	if len(store.snapshot()) != 0 {
		t.Fatal("expected no entries on failure")
	}
}
