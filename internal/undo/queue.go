package undo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"conveyor/internal/logging"
)

// Window is the fixed period during which an entry may be reverted.
const Window = 30 * time.Second

// ErrExpired is returned when a revert targets an entry past its window or
// one that never existed.
var ErrExpired = errors.New("undo entry expired or unknown")

// ErrRevertInFlight is returned when a revert targets an entry whose inverse
// is already executing.
var ErrRevertInFlight = errors.New("revert already in progress")

// Entry is one pending reversible command.
type Entry struct {
	ID        string
	Command   Command
	CreatedAt time.Time
	ExpiresAt time.Time

	// inflight marks an entry whose inverse is executing; guarded by Queue.mu.
	inflight bool
}

// Remaining returns how much of the window is left at the given instant.
func (e Entry) Remaining(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Queue owns pending undo entries for one session. Entries expire silently
// at a hard cutoff; expiry is enforced on every access rather than by timer
// so a revert at t >= Window always fails even if no janitor ran.
type Queue struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	executor Executor
	window   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewQueue constructs a queue over the given executor with the standard window.
func NewQueue(executor Executor, logger *slog.Logger) *Queue {
	return &Queue{
		entries:  make(map[string]*Entry),
		executor: executor,
		window:   Window,
		logger:   logging.WithComponent(logger, "undo"),
		now:      time.Now,
	}
}

// Add stores a command and starts its countdown. The returned entry is a copy.
func (q *Queue) Add(cmd Command) Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()

	now := q.now()
	entry := &Entry{
		ID:        uuid.NewString(),
		Command:   cmd,
		CreatedAt: now,
		ExpiresAt: now.Add(q.window),
	}
	q.entries[entry.ID] = entry
	q.logger.Debug("undo entry added",
		logging.String("entry_id", entry.ID),
		logging.Int("sku_count", len(cmd.SKUs)))
	return *entry
}

// Entries returns the pending, unexpired entries ordered oldest first.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()

	out := make([]Entry, 0, len(q.entries))
	for _, entry := range q.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Revert executes the inverse of a pending entry. On success the entry is
// removed; on failure it stays pending and the error is returned to the
// caller without retry. The entry is marked in-flight while the inverse
// runs so a concurrent revert of the same id cannot execute it twice.
func (q *Queue) Revert(ctx context.Context, entryID string) error {
	q.mu.Lock()
	q.pruneLocked()
	entry, ok := q.entries[entryID]
	if !ok {
		q.mu.Unlock()
		return ErrExpired
	}
	if entry.inflight {
		q.mu.Unlock()
		return ErrRevertInFlight
	}
	entry.inflight = true
	cmd := entry.Command
	q.mu.Unlock()

	if _, err := q.executor.Execute(ctx, Invert(cmd)); err != nil {
		q.mu.Lock()
		if pending, stillThere := q.entries[entryID]; stillThere {
			pending.inflight = false
		}
		q.mu.Unlock()
		q.logger.Warn("revert failed",
			logging.String("entry_id", entryID),
			logging.Error(err))
		return fmt.Errorf("revert: %w", err)
	}

	q.mu.Lock()
	delete(q.entries, entryID)
	q.mu.Unlock()
	return nil
}

func (q *Queue) pruneLocked() {
	now := q.now()
	for id, entry := range q.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(q.entries, id)
		}
	}
}
