package ipc_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"conveyor/internal/catalog"
	"conveyor/internal/daemon"
	"conveyor/internal/ipc"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
	"conveyor/internal/progress"
	"conveyor/internal/testsupport"
)

// startTestServer brings up a daemon plus its IPC server and returns a
// connected client. Skips when the sandbox forbids unix sockets.
func startTestServer(t *testing.T) (*ipc.Client, *daemon.Daemon, *catalog.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "conveyor.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client, d, store
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "conveyor.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC: %v", err)
	}
	if !status.Running || status.DatabasePath == "" {
		t.Fatalf("unexpected status: %#v", status)
	}

	for _, sku := range []string{"SKU-A", "SKU-B"} {
		testsupport.SeedProduct(t, store, sku, pipeline.StatusConsolidated)
	}

	list, err := client.ProductList(ipc.ProductListRequest{Status: "consolidated", Limit: 10})
	if err != nil {
		t.Fatalf("ProductList RPC: %v", err)
	}
	if list.TotalCount != 2 || len(list.Products) != 2 {
		t.Fatalf("unexpected list: %#v", list)
	}

	transition, err := client.BulkTransition(ipc.BulkTransitionRequest{
		Tab:    "consolidated",
		Action: "approve",
		SKUs:   []string{"SKU-A", "SKU-B"},
		Actor:  "reviewer-1",
	})
	if err != nil {
		t.Fatalf("BulkTransition RPC: %v", err)
	}
	if transition.UpdatedCount != 2 || transition.TargetStatus != "approved" || transition.UndoID == "" {
		t.Fatalf("unexpected transition: %#v", transition)
	}

	undoList, err := client.UndoList()
	if err != nil {
		t.Fatalf("UndoList RPC: %v", err)
	}
	if len(undoList.Entries) != 1 || undoList.Entries[0].ID != transition.UndoID {
		t.Fatalf("unexpected undo entries: %#v", undoList.Entries)
	}

	revert, err := client.UndoRevert(transition.UndoID)
	if err != nil {
		t.Fatalf("UndoRevert RPC: %v", err)
	}
	if !revert.Reverted {
		t.Fatal("expected revert to succeed")
	}

	described, err := client.ProductDescribe("SKU-A")
	if err != nil {
		t.Fatalf("ProductDescribe RPC: %v", err)
	}
	if described.Product.Status != "consolidated" {
		t.Fatalf("status after revert = %q", described.Product.Status)
	}

	counts, err := client.StatusCounts()
	if err != nil {
		t.Fatalf("StatusCounts RPC: %v", err)
	}
	total := 0
	for _, count := range counts.Counts {
		total += count.Count
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}

	if _, err := client.BulkTransition(ipc.BulkTransitionRequest{
		Tab:    "staging",
		Action: "approve",
		SKUs:   []string{"SKU-A"},
	}); err == nil {
		t.Fatal("staging writes must be rejected")
	}

	stopped, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC: %v", err)
	}
	if !stopped.Stopped {
		t.Fatal("expected stop to report success")
	}
}

func TestIPCSessionReviewFlow(t *testing.T) {
	client, _, store := startTestServer(t)

	for _, sku := range []string{"SKU-1", "SKU-2", "SKU-3"} {
		testsupport.SeedProduct(t, store, sku, pipeline.StatusConsolidated)
	}
	testsupport.SeedProduct(t, store, "SKU-4", pipeline.StatusFailed)

	opened, err := client.SessionOpen("reviewer-2")
	if err != nil {
		t.Fatalf("SessionOpen RPC: %v", err)
	}
	sessionID := opened.SessionID
	if sessionID == "" {
		t.Fatal("expected a session id")
	}

	if err := client.SessionFilter(ipc.SessionFilterRequest{
		SessionID: sessionID,
		Status:    "consolidated",
	}); err != nil {
		t.Fatalf("SessionFilter RPC: %v", err)
	}

	selected, err := client.SessionSelectAll(sessionID)
	if err != nil {
		t.Fatalf("SessionSelectAll RPC: %v", err)
	}
	if selected.SelectedCount != 3 {
		t.Fatalf("selected %d, want 3", selected.SelectedCount)
	}

	applied, err := client.SessionApply(sessionID, "approve")
	if err != nil {
		t.Fatalf("SessionApply RPC: %v", err)
	}
	if applied.UpdatedCount != 3 || applied.TargetStatus != "approved" || applied.UndoID == "" {
		t.Fatalf("unexpected apply result: %#v", applied)
	}

	described, err := client.ProductDescribe("SKU-1")
	if err != nil {
		t.Fatalf("ProductDescribe RPC: %v", err)
	}
	if described.Product.Status != "approved" {
		t.Fatalf("status after apply = %q", described.Product.Status)
	}

	// The undo entry belongs to the session's queue, not the daemon's.
	daemonUndo, err := client.UndoList()
	if err != nil {
		t.Fatalf("UndoList RPC: %v", err)
	}
	if len(daemonUndo.Entries) != 0 {
		t.Fatalf("daemon queue should be empty, got %#v", daemonUndo.Entries)
	}
	sessionUndo, err := client.SessionUndoList(sessionID)
	if err != nil {
		t.Fatalf("SessionUndoList RPC: %v", err)
	}
	if len(sessionUndo.Entries) != 1 || sessionUndo.Entries[0].ID != applied.UndoID {
		t.Fatalf("unexpected session undo entries: %#v", sessionUndo.Entries)
	}

	reverted, err := client.SessionUndoRevert(sessionID, applied.UndoID)
	if err != nil {
		t.Fatalf("SessionUndoRevert RPC: %v", err)
	}
	if !reverted.Reverted {
		t.Fatal("expected revert to succeed")
	}
	described, err = client.ProductDescribe("SKU-1")
	if err != nil {
		t.Fatalf("ProductDescribe RPC: %v", err)
	}
	if described.Product.Status != "consolidated" {
		t.Fatalf("status after revert = %q", described.Product.Status)
	}

	closed, err := client.SessionClose(sessionID)
	if err != nil {
		t.Fatalf("SessionClose RPC: %v", err)
	}
	if !closed.Closed {
		t.Fatal("expected close to succeed")
	}
	if _, err := client.SessionSelectAll(sessionID); err == nil {
		t.Fatal("operations on a closed session must fail")
	}
}

func TestTrackerSourceBridgesDaemonEvents(t *testing.T) {
	client, d, store := startTestServer(t)
	source := ipc.NewTrackerSource(client)

	d.Hub().Publish(progress.BatchEvent{BatchID: "batch-1", Progress: 40, Status: catalog.BatchRunning})

	events, next, err := source.Fetch(context.Background(), 0, 10, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || next != 1 {
		t.Fatalf("events = %d, next = %d", len(events), next)
	}
	if events[0].BatchID != "batch-1" || events[0].Progress != 40 || events[0].Status != catalog.BatchRunning {
		t.Fatalf("unexpected event: %#v", events[0])
	}

	testsupport.SeedProduct(t, store, "SKU-P", pipeline.StatusScraped)
	submitted, err := client.BatchSubmit([]string{"SKU-P"})
	if err != nil {
		t.Fatalf("BatchSubmit RPC: %v", err)
	}
	prog, status, err := source.BatchStatus(context.Background(), submitted.BatchID)
	if err != nil {
		t.Fatalf("BatchStatus: %v", err)
	}
	if status.IsTerminal() || prog < 0 || prog > 100 {
		t.Fatalf("unexpected poll result: %d%% %s", prog, status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tracker := progress.NewTracker(source, source, progress.Options{})
	tracker.SubscribeToBatch("batch-1")
	tracker.Connect(ctx)
	defer tracker.Close()

	d.Hub().Publish(progress.BatchEvent{BatchID: "batch-1", Progress: 100, Status: catalog.BatchCompleted})

	deadline := time.Now().Add(2 * time.Second)
	for {
		state, ok := tracker.Snapshot("batch-1")
		if ok && state.Terminal {
			if state.Progress != 100 || state.Status != catalog.BatchCompleted {
				t.Fatalf("unexpected terminal state: %#v", state)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("tracker never observed the terminal event over IPC")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestIPCEventsLongPollTimesOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "conveyor.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	start := time.Now()
	events, err := client.Events(ipc.EventsRequest{Since: 0, WaitMillis: 100})
	if err != nil {
		t.Fatalf("Events RPC: %v", err)
	}
	if len(events.Events) != 0 {
		t.Fatalf("expected no events, got %#v", events.Events)
	}
	if time.Since(start) < 100*time.Millisecond {
		t.Fatal("long poll returned before the wait elapsed")
	}
}
