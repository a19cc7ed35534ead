package catalog

import (
	"context"
	"fmt"
	"time"
)

// AppendAudit inserts one audit log row. The log is append-only; there is no
// update or delete path.
func (s *Store) AppendAudit(ctx context.Context, entry *AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is nil")
	}
	entry.CreatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO audit_log (
            job_type, job_id, from_state, to_state, actor_id, actor_type, metadata_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobType,
		entry.JobID,
		nullableString(entry.FromState),
		nullableString(entry.ToState),
		nullableString(entry.ActorID),
		entry.ActorType,
		nullableString(entry.MetadataJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListAudit returns the most recent audit entries, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, job_type, job_id, from_state, to_state, actor_id, actor_type, metadata_json, created_at
         FROM audit_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (*AuditEntry, error) {
	var (
		entry      AuditEntry
		fromState  *string
		toState    *string
		actorID    *string
		metadata   *string
		createdRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.JobType,
		&entry.JobID,
		&fromState,
		&toState,
		&actorID,
		&entry.ActorType,
		&metadata,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	if fromState != nil {
		entry.FromState = *fromState
	}
	if toState != nil {
		entry.ToState = *toState
	}
	if actorID != nil {
		entry.ActorID = *actorID
	}
	if metadata != nil {
		entry.MetadataJSON = *metadata
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return &entry, nil
}
