package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Conveyor.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Conveyor.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProductList pages one status tab with optional filters.
func (c *Client) ProductList(req ProductListRequest) (*ProductListResponse, error) {
	var resp ProductListResponse
	if err := c.client.Call("Conveyor.ProductList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProductDescribe returns details for a single product.
func (c *Client) ProductDescribe(sku string) (*ProductDescribeResponse, error) {
	var resp ProductDescribeResponse
	if err := c.client.Call("Conveyor.ProductDescribe", ProductDescribeRequest{SKU: sku}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatusCounts returns per-status bucket sizes.
func (c *Client) StatusCounts() (*StatusCountsResponse, error) {
	var resp StatusCountsResponse
	if err := c.client.Call("Conveyor.StatusCounts", StatusCountsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BulkTransition applies a pipeline action to an explicit SKU set.
func (c *Client) BulkTransition(req BulkTransitionRequest) (*BulkTransitionResponse, error) {
	var resp BulkTransitionResponse
	if err := c.client.Call("Conveyor.BulkTransition", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BulkDelete permanently removes an explicit SKU set.
func (c *Client) BulkDelete(req BulkDeleteRequest) (*BulkDeleteResponse, error) {
	var resp BulkDeleteResponse
	if err := c.client.Call("Conveyor.BulkDelete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UndoList returns pending reversible operations.
func (c *Client) UndoList() (*UndoListResponse, error) {
	var resp UndoListResponse
	if err := c.client.Call("Conveyor.UndoList", UndoListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UndoRevert reverts one pending entry.
func (c *Client) UndoRevert(id string) (*UndoRevertResponse, error) {
	var resp UndoRevertResponse
	if err := c.client.Call("Conveyor.UndoRevert", UndoRevertRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchSubmit enqueues a consolidation batch.
func (c *Client) BatchSubmit(skus []string) (*BatchSubmitResponse, error) {
	var resp BatchSubmitResponse
	if err := c.client.Call("Conveyor.BatchSubmit", BatchSubmitRequest{SKUs: skus}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchDescribe returns details for a single batch.
func (c *Client) BatchDescribe(id string) (*BatchDescribeResponse, error) {
	var resp BatchDescribeResponse
	if err := c.client.Call("Conveyor.BatchDescribe", BatchDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchApply promotes a completed batch's products.
func (c *Client) BatchApply(id string) (*BatchApplyResponse, error) {
	var resp BatchApplyResponse
	if err := c.client.Call("Conveyor.BatchApply", BatchApplyRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchList returns recent batches newest first.
func (c *Client) BatchList(limit int) (*BatchListResponse, error) {
	var resp BatchListResponse
	if err := c.client.Call("Conveyor.BatchList", BatchListRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProductRetry moves a failed product back into the pipeline.
func (c *Client) ProductRetry(sku string) (*ProductRetryResponse, error) {
	var resp ProductRetryResponse
	if err := c.client.Call("Conveyor.ProductRetry", ProductRetryRequest{SKU: sku}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AuditList returns recent audit entries newest first.
func (c *Client) AuditList(limit int) (*AuditListResponse, error) {
	var resp AuditListResponse
	if err := c.client.Call("Conveyor.AuditList", AuditListRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events fetches progress events past a cursor, optionally long-polling.
func (c *Client) Events(req EventsRequest) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.client.Call("Conveyor.Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionOpen creates a review session for this connection.
func (c *Client) SessionOpen(actor string) (*SessionOpenResponse, error) {
	var resp SessionOpenResponse
	if err := c.client.Call("Conveyor.SessionOpen", SessionOpenRequest{Actor: actor}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionClose releases a review session.
func (c *Client) SessionClose(sessionID string) (*SessionCloseResponse, error) {
	var resp SessionCloseResponse
	if err := c.client.Call("Conveyor.SessionClose", SessionCloseRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionFilter switches a session's active tab and filters.
func (c *Client) SessionFilter(req SessionFilterRequest) error {
	var resp SessionFilterResponse
	return c.client.Call("Conveyor.SessionFilter", req, &resp)
}

// SessionPage lists one page of the session's active tab.
func (c *Client) SessionPage(req SessionPageRequest) (*SessionPageResponse, error) {
	var resp SessionPageResponse
	if err := c.client.Call("Conveyor.SessionPage", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionToggle flips selection membership of one visible SKU.
func (c *Client) SessionToggle(req SessionToggleRequest) (*SessionToggleResponse, error) {
	var resp SessionToggleResponse
	if err := c.client.Call("Conveyor.SessionToggle", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionToggleAll selects or clears the session's current page.
func (c *Client) SessionToggleAll(sessionID string) (*SessionToggleAllResponse, error) {
	var resp SessionToggleAllResponse
	if err := c.client.Call("Conveyor.SessionToggleAll", SessionToggleAllRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionSelectAll materializes every matching SKU as the selection.
func (c *Client) SessionSelectAll(sessionID string) (*SessionSelectAllResponse, error) {
	var resp SessionSelectAllResponse
	if err := c.client.Call("Conveyor.SessionSelectAll", SessionSelectAllRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionApply runs a bulk action against the session's selection.
func (c *Client) SessionApply(sessionID, action string) (*SessionApplyResponse, error) {
	var resp SessionApplyResponse
	if err := c.client.Call("Conveyor.SessionApply", SessionApplyRequest{SessionID: sessionID, Action: action}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionDelete permanently removes the session's selection.
func (c *Client) SessionDelete(sessionID string) (*SessionDeleteResponse, error) {
	var resp SessionDeleteResponse
	if err := c.client.Call("Conveyor.SessionDelete", SessionDeleteRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionConsolidate submits the session's selection as a batch.
func (c *Client) SessionConsolidate(sessionID string) (*SessionConsolidateResponse, error) {
	var resp SessionConsolidateResponse
	if err := c.client.Call("Conveyor.SessionConsolidate", SessionConsolidateRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionUndoList returns the session's pending reversible operations.
func (c *Client) SessionUndoList(sessionID string) (*SessionUndoListResponse, error) {
	var resp SessionUndoListResponse
	if err := c.client.Call("Conveyor.SessionUndoList", SessionUndoListRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionUndoRevert reverts one pending entry in the session's queue.
func (c *Client) SessionUndoRevert(sessionID, id string) (*SessionUndoRevertResponse, error) {
	var resp SessionUndoRevertResponse
	if err := c.client.Call("Conveyor.SessionUndoRevert", SessionUndoRevertRequest{SessionID: sessionID, ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionBatchState reads the tracked progress of a subscribed batch.
func (c *Client) SessionBatchState(sessionID, batchID string) (*SessionBatchStateResponse, error) {
	var resp SessionBatchStateResponse
	if err := c.client.Call("Conveyor.SessionBatchState", SessionBatchStateRequest{SessionID: sessionID, BatchID: batchID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
