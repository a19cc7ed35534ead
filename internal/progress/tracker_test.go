package progress

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"conveyor/internal/catalog"
	"conveyor/internal/logging"
)

type failingSource struct{}

func (failingSource) Fetch(ctx context.Context, _ uint64, _ int, wait bool) ([]BatchEvent, uint64, error) {
	if wait {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil, 0, errors.New("channel down")
}

type fakePoller struct {
	mu       sync.Mutex
	progress int
	status   catalog.BatchStatus
	calls    int
}

func (f *fakePoller) BatchStatus(context.Context, string) (int, catalog.BatchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.progress, f.status, nil
}

func (f *fakePoller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newHubTracker(t *testing.T, hub *Hub, refresh func(string)) *Tracker {
	t.Helper()
	tracker := NewTracker(hub, &fakePoller{}, Options{
		PollInterval: 20 * time.Millisecond,
		Refresh:      refresh,
		Logger:       logging.NewNop(),
	})
	tracker.Connect(context.Background())
	t.Cleanup(tracker.Close)
	return tracker
}

func TestTrackerAppliesPushEvents(t *testing.T) {
	hub := NewHub(16)
	tracker := newHubTracker(t, hub, nil)

	tracker.SubscribeToBatch("batch-1")
	hub.Publish(BatchEvent{BatchID: "batch-1", Progress: 40, Status: catalog.BatchRunning})

	waitFor(t, 2*time.Second, func() bool {
		state, ok := tracker.Snapshot("batch-1")
		return ok && state.Progress == 40 && state.Status == catalog.BatchRunning
	})
	if tracker.ConnectionStatus() != StatusConnected {
		t.Fatalf("connection = %q, want connected", tracker.ConnectionStatus())
	}
}

func TestTrackerIgnoresUnsubscribedBatches(t *testing.T) {
	hub := NewHub(16)
	tracker := newHubTracker(t, hub, nil)

	tracker.SubscribeToBatch("batch-1")
	hub.Publish(BatchEvent{BatchID: "batch-other", Progress: 90, Status: catalog.BatchRunning})
	hub.Publish(BatchEvent{BatchID: "batch-1", Progress: 10, Status: catalog.BatchRunning})

	waitFor(t, 2*time.Second, func() bool {
		state, ok := tracker.Snapshot("batch-1")
		return ok && state.Progress == 10
	})
	if _, ok := tracker.Snapshot("batch-other"); ok {
		t.Fatal("unsubscribed batch must not be tracked")
	}
}

func TestTerminalEventStopsUpdatesAndTriggersOneRefresh(t *testing.T) {
	hub := NewHub(16)
	var refreshes int32
	tracker := newHubTracker(t, hub, func(string) { atomic.AddInt32(&refreshes, 1) })

	tracker.SubscribeToBatch("batch-1")
	hub.Publish(BatchEvent{BatchID: "batch-1", Progress: 100, Status: catalog.BatchFailed})

	waitFor(t, 2*time.Second, func() bool {
		state, ok := tracker.Snapshot("batch-1")
		return ok && state.Terminal
	})
	if got := atomic.LoadInt32(&refreshes); got != 1 {
		t.Fatalf("refreshes = %d, want 1", got)
	}

	// Further events for the terminal batch are ignored, but the
	// subscription persists until explicitly dropped.
	hub.Publish(BatchEvent{BatchID: "batch-1", Progress: 55, Status: catalog.BatchRunning})
	time.Sleep(100 * time.Millisecond)
	state, ok := tracker.Snapshot("batch-1")
	if !ok {
		t.Fatal("subscription must survive terminal status")
	}
	if state.Progress != 100 || state.Status != catalog.BatchFailed {
		t.Fatalf("terminal state overwritten: %#v", state)
	}
	if got := atomic.LoadInt32(&refreshes); got != 1 {
		t.Fatalf("refreshes = %d, want 1", got)
	}

	tracker.UnsubscribeFromBatch("batch-1")
	hub.Publish(BatchEvent{BatchID: "batch-1", Progress: 60, Status: catalog.BatchRunning})
	time.Sleep(100 * time.Millisecond)
	if _, ok := tracker.Snapshot("batch-1"); ok {
		t.Fatal("stale event revived an unsubscribed batch")
	}
}

func TestTrackerFallsBackToPolling(t *testing.T) {
	poller := &fakePoller{progress: 70, status: catalog.BatchRunning}
	tracker := NewTracker(failingSource{}, poller, Options{
		PollInterval:        20 * time.Millisecond,
		ReconnectMaxElapsed: 50 * time.Millisecond,
		Logger:              logging.NewNop(),
	})
	tracker.Connect(context.Background())
	t.Cleanup(tracker.Close)

	tracker.SubscribeToBatch("batch-1")

	waitFor(t, 10*time.Second, func() bool {
		return tracker.ConnectionStatus() == StatusDegraded
	})
	waitFor(t, 5*time.Second, func() bool {
		state, ok := tracker.Snapshot("batch-1")
		return ok && state.Progress == 70
	})
	if poller.callCount() == 0 {
		t.Fatal("poller was never consulted")
	}
}
