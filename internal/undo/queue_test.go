package undo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

type fakeExecutor struct {
	mu       sync.Mutex
	commands []Command
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, cmd Command) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.commands = append(f.commands, cmd)
	return len(cmd.SKUs), nil
}

func newTestQueue(executor Executor) (*Queue, *time.Time) {
	queue := NewQueue(executor, logging.NewNop())
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	queue.now = func() time.Time { return current }
	return queue, &current
}

func TestInvertIsPureAndSymmetric(t *testing.T) {
	cmd := Command{
		Kind: KindBulkTransition,
		SKUs: []string{"SKU-1", "SKU-2"},
		From: pipeline.StatusConsolidated,
		To:   pipeline.StatusApproved,
	}
	inverse := Invert(cmd)
	if inverse.From != pipeline.StatusApproved || inverse.To != pipeline.StatusConsolidated {
		t.Fatalf("unexpected inverse: %#v", inverse)
	}
	if cmd.From != pipeline.StatusConsolidated {
		t.Fatal("Invert mutated its input")
	}
	roundTrip := Invert(inverse)
	if roundTrip.From != cmd.From || roundTrip.To != cmd.To {
		t.Fatalf("double inversion drifted: %#v", roundTrip)
	}
	inverse.SKUs[0] = "changed"
	if cmd.SKUs[0] != "SKU-1" {
		t.Fatal("inverse shares the sku slice with its input")
	}
}

func TestRevertInsideWindowExecutesInverse(t *testing.T) {
	executor := &fakeExecutor{}
	queue, current := newTestQueue(executor)

	entry := queue.Add(Command{
		Kind: KindBulkTransition,
		SKUs: []string{"SKU-1"},
		From: pipeline.StatusConsolidated,
		To:   pipeline.StatusApproved,
	})

	*current = current.Add(29 * time.Second)
	if err := queue.Revert(context.Background(), entry.ID); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if len(executor.commands) != 1 {
		t.Fatalf("executed %d commands, want 1", len(executor.commands))
	}
	if executor.commands[0].To != pipeline.StatusConsolidated {
		t.Fatalf("inverse not executed: %#v", executor.commands[0])
	}
	if len(queue.Entries()) != 0 {
		t.Fatal("entry should be consumed on success")
	}
}

func TestRevertAtWindowBoundaryFails(t *testing.T) {
	executor := &fakeExecutor{}
	queue, current := newTestQueue(executor)

	entry := queue.Add(Command{Kind: KindBulkTransition, SKUs: []string{"SKU-1"}})

	*current = current.Add(Window)
	if err := queue.Revert(context.Background(), entry.ID); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at t >= window, got %v", err)
	}
	if len(executor.commands) != 0 {
		t.Fatal("expired entry must not execute")
	}
}

func TestExpiredEntriesVanishSilently(t *testing.T) {
	executor := &fakeExecutor{}
	queue, current := newTestQueue(executor)

	queue.Add(Command{Kind: KindBulkTransition, SKUs: []string{"SKU-1"}})
	*current = current.Add(Window + time.Second)

	if entries := queue.Entries(); len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestFailedRevertLeavesEntryPending(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("store down")}
	queue, _ := newTestQueue(executor)

	entry := queue.Add(Command{Kind: KindBulkTransition, SKUs: []string{"SKU-1"}})
	if err := queue.Revert(context.Background(), entry.ID); err == nil {
		t.Fatal("expected revert failure")
	}

	entries := queue.Entries()
	if len(entries) != 1 || entries[0].ID != entry.ID {
		t.Fatalf("entry should remain pending: %#v", entries)
	}

	// A later retry after the store recovers succeeds.
	executor.err = nil
	if err := queue.Revert(context.Background(), entry.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

type blockingExecutor struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingExecutor) Execute(_ context.Context, _ Command) (int, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.release
	return 1, nil
}

func (b *blockingExecutor) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestConcurrentRevertsExecuteInverseOnce(t *testing.T) {
	executor := &blockingExecutor{release: make(chan struct{})}
	queue, _ := newTestQueue(executor)

	entry := queue.Add(Command{Kind: KindBulkTransition, SKUs: []string{"SKU-1"}})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- queue.Revert(context.Background(), entry.ID)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for executor.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first revert never reached the executor")
		}
		time.Sleep(time.Millisecond)
	}

	if err := queue.Revert(context.Background(), entry.ID); !errors.Is(err, ErrRevertInFlight) {
		t.Fatalf("second revert = %v, want ErrRevertInFlight", err)
	}

	close(executor.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first revert: %v", err)
	}
	if got := executor.callCount(); got != 1 {
		t.Fatalf("inverse executed %d times, want 1", got)
	}
	if len(queue.Entries()) != 0 {
		t.Fatal("entry should be consumed on success")
	}
}

func TestEntriesAreIndependent(t *testing.T) {
	executor := &fakeExecutor{}
	queue, current := newTestQueue(executor)

	first := queue.Add(Command{Kind: KindBulkTransition, SKUs: []string{"SKU-1", "SKU-2"}})
	*current = current.Add(5 * time.Second)
	second := queue.Add(Command{Kind: KindBulkTransition, SKUs: []string{"SKU-2", "SKU-3"}})

	if err := queue.Revert(context.Background(), second.ID); err != nil {
		t.Fatalf("Revert second: %v", err)
	}

	entries := queue.Entries()
	if len(entries) != 1 || entries[0].ID != first.ID {
		t.Fatalf("reverting one entry disturbed another: %#v", entries)
	}
	if got := entries[0].Remaining(*current); got != Window-5*time.Second {
		t.Fatalf("remaining = %v", got)
	}
}
