package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"conveyor/internal/catalog"
	"conveyor/internal/logging"
)

// ConnectionStatus describes how batch updates are currently delivered.
type ConnectionStatus string

const (
	// StatusConnected means the push channel is live.
	StatusConnected ConnectionStatus = "connected"
	// StatusDegraded means the push channel is down and updates arrive via
	// fixed-interval polling; callers should warn that updates may be delayed.
	StatusDegraded ConnectionStatus = "degraded"
	// StatusDisconnected means the tracker is not running.
	StatusDisconnected ConnectionStatus = "disconnected"
)

// EventSource is the push channel the tracker consumes. Fetch blocks when
// wait is true until events past since arrive or the context ends.
type EventSource interface {
	Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]BatchEvent, uint64, error)
}

// StatusPoller is the fallback status endpoint used while the push channel
// is unavailable.
type StatusPoller interface {
	BatchStatus(ctx context.Context, batchID string) (int, catalog.BatchStatus, error)
}

// BatchState is the observable progress record for one subscribed batch.
type BatchState struct {
	BatchID  string
	Progress int
	Status   catalog.BatchStatus
	Terminal bool
}

const fetchLimit = 64

// Options configures a Tracker.
type Options struct {
	// PollInterval is the fallback polling cadence. Defaults to 5 seconds.
	PollInterval time.Duration
	// ReconnectMaxElapsed bounds one streak of reconnect attempts before the
	// tracker degrades to polling. Defaults to 30 seconds.
	ReconnectMaxElapsed time.Duration
	// Refresh is invoked once per batch when it reaches a terminal status,
	// so the caller can reload the affected record set.
	Refresh func(batchID string)
	Logger  *slog.Logger
}

// Tracker observes consolidation batches. All state mutation happens in a
// single consumer loop that reads events from an internal channel; the push
// reader and the polling fallback both feed that channel.
type Tracker struct {
	source       EventSource
	poller       StatusPoller
	pollInterval time.Duration
	reconnectMax time.Duration
	refresh      func(batchID string)
	logger       *slog.Logger

	events chan BatchEvent

	mu     sync.Mutex
	states map[string]*BatchState
	conn   ConnectionStatus
	since  uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker constructs a tracker over the given source and poller.
func NewTracker(source EventSource, poller StatusPoller, opts Options) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.ReconnectMaxElapsed <= 0 {
		opts.ReconnectMaxElapsed = 30 * time.Second
	}
	return &Tracker{
		source:       source,
		poller:       poller,
		pollInterval: opts.PollInterval,
		reconnectMax: opts.ReconnectMaxElapsed,
		refresh:      opts.Refresh,
		logger:       logging.WithComponent(opts.Logger, "progress"),
		events:       make(chan BatchEvent, fetchLimit),
		states:       make(map[string]*BatchState),
		conn:         StatusDisconnected,
	}
}

// Connect starts the reader and consumer loops. It returns immediately; the
// channel remains open and idle while no batch is subscribed.
func (t *Tracker) Connect(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(2)
	go t.receiveLoop(ctx)
	go t.consumeLoop(ctx)
}

// Close stops both loops and waits for them to exit.
func (t *Tracker) Close() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
	t.setConn(StatusDisconnected)
}

// SubscribeToBatch registers interest in a batch id.
func (t *Tracker) SubscribeToBatch(batchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.states[batchID]; ok {
		return
	}
	t.states[batchID] = &BatchState{BatchID: batchID, Status: catalog.BatchPending}
}

// UnsubscribeFromBatch drops a batch id. Events for it are ignored afterward.
func (t *Tracker) UnsubscribeFromBatch(batchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, batchID)
}

// Snapshot returns the current state of a subscribed batch.
func (t *Tracker) Snapshot(batchID string) (BatchState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[batchID]
	if !ok {
		return BatchState{}, false
	}
	return *state, true
}

// ConnectionStatus reports how updates are currently delivered.
func (t *Tracker) ConnectionStatus() ConnectionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

func (t *Tracker) setConn(status ConnectionStatus) {
	t.mu.Lock()
	changed := t.conn != status
	t.conn = status
	t.mu.Unlock()
	if changed {
		t.logger.Info("connection status changed", logging.String("status", string(status)))
	}
}

func (t *Tracker) sinceValue() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.since
}

func (t *Tracker) setSince(value uint64) {
	t.mu.Lock()
	if value > t.since {
		t.since = value
	}
	t.mu.Unlock()
}

func (t *Tracker) receiveLoop(ctx context.Context) {
	defer t.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		err := t.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		t.setConn(StatusDegraded)
		t.logger.Warn("push channel unavailable, falling back to polling", logging.Error(err))
		if !t.pollUntilRecovered(ctx) {
			return
		}
	}
}

// stream consumes the push channel, retrying transient failures with
// exponential backoff until the reconnect budget is exhausted.
func (t *Tracker) stream(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = t.reconnectMax
	for {
		events, next, err := t.source.Fetch(ctx, t.sinceValue(), fetchLimit, true)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			wait := policy.NextBackOff()
			if wait == backoff.Stop {
				return err
			}
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		policy.Reset()
		t.setConn(StatusConnected)
		t.setSince(next)
		for _, evt := range events {
			select {
			case t.events <- evt:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// pollUntilRecovered feeds synthetic events from the status endpoint at a
// fixed interval. Each tick it also probes the push channel; a successful
// probe ends the fallback. Returns false only when the context ends.
func (t *Tracker) pollUntilRecovered(ctx context.Context) bool {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if events, next, err := t.source.Fetch(ctx, t.sinceValue(), fetchLimit, false); err == nil {
				t.setSince(next)
				for _, evt := range events {
					select {
					case t.events <- evt:
					case <-ctx.Done():
						return false
					}
				}
				return true
			}
			t.pollOnce(ctx)
		}
	}
}

func (t *Tracker) pollOnce(ctx context.Context) {
	for _, batchID := range t.activeBatches() {
		progress, status, err := t.poller.BatchStatus(ctx, batchID)
		if err != nil {
			t.logger.Warn("status poll failed",
				logging.String(logging.FieldBatchID, batchID),
				logging.Error(err))
			continue
		}
		evt := BatchEvent{BatchID: batchID, Progress: progress, Status: status, Timestamp: time.Now().UTC()}
		select {
		case t.events <- evt:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) activeBatches() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.states))
	for id, state := range t.states {
		if !state.Terminal {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Tracker) consumeLoop(ctx context.Context) {
	defer t.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-t.events:
			t.apply(evt)
		}
	}
}

// apply updates the observable state for one event. Events for batches that
// are not subscribed, or that already reached a terminal status, are ignored.
func (t *Tracker) apply(evt BatchEvent) {
	t.mu.Lock()
	state, ok := t.states[evt.BatchID]
	if !ok || state.Terminal {
		t.mu.Unlock()
		return
	}
	state.Progress = evt.Progress
	state.Status = evt.Status
	terminal := evt.Status.IsTerminal()
	if terminal {
		state.Terminal = true
	}
	t.mu.Unlock()

	if terminal {
		t.logger.Info("batch reached terminal status",
			logging.String(logging.FieldBatchID, evt.BatchID),
			logging.String("status", string(evt.Status)))
		if t.refresh != nil {
			t.refresh(evt.BatchID)
		}
	}
}
