package ipc

import (
	"context"
	"time"

	"conveyor/internal/catalog"
	"conveyor/internal/progress"
)

// streamWaitMillis bounds one long-poll issued on behalf of a tracker.
const streamWaitMillis = 5000

// TrackerSource adapts a Client to the progress tracker's event source and
// fallback poller, so CLI processes observe batches the same way daemon-side
// sessions do.
type TrackerSource struct {
	client *Client
}

// NewTrackerSource wraps an established client connection.
func NewTrackerSource(client *Client) *TrackerSource {
	return &TrackerSource{client: client}
}

// Fetch implements progress.EventSource over the Events RPC. The call is
// issued asynchronously so a canceled context unblocks the caller even while
// the server side is still long-polling.
func (t *TrackerSource) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]progress.BatchEvent, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, since, err
	}
	waitMillis := 0
	if wait {
		waitMillis = streamWaitMillis
	}
	var resp EventsResponse
	call := t.client.client.Go("Conveyor.Events",
		EventsRequest{Since: since, Limit: limit, WaitMillis: waitMillis}, &resp, nil)
	select {
	case <-ctx.Done():
		return nil, since, ctx.Err()
	case <-call.Done:
	}
	if call.Error != nil {
		return nil, since, call.Error
	}
	events := make([]progress.BatchEvent, 0, len(resp.Events))
	for _, evt := range resp.Events {
		converted := progress.BatchEvent{
			Sequence: evt.Sequence,
			BatchID:  evt.BatchID,
			Progress: evt.Progress,
			Status:   catalog.BatchStatus(evt.Status),
		}
		if ts, parseErr := time.Parse(time.RFC3339, evt.Timestamp); parseErr == nil {
			converted.Timestamp = ts
		}
		events = append(events, converted)
	}
	return events, resp.NextSequence, nil
}

// BatchStatus implements progress.StatusPoller over the BatchDescribe RPC.
func (t *TrackerSource) BatchStatus(ctx context.Context, batchID string) (int, catalog.BatchStatus, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}
	resp, err := t.client.BatchDescribe(batchID)
	if err != nil {
		return 0, "", err
	}
	return resp.Batch.Progress, catalog.BatchStatus(resp.Batch.Status), nil
}
