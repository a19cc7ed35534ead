package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"conveyor/internal/api"
	"conveyor/internal/bulk"
	"conveyor/internal/catalog"
	"conveyor/internal/daemon"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Conveyor", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun conveyor stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return logging.WithComponent(s.logger, "ipc")
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.StatusCounts = api.FromStatusCounts(status.StatusCounts)
	resp.APIAddr = s.daemon.APIAddr()
	if !status.StartedAt.IsZero() {
		resp.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	return nil
}

func (s *service) ProductList(req ProductListRequest, resp *ProductListResponse) error {
	status, ok := pipeline.ParseStatus(req.Status)
	if !ok {
		return fmt.Errorf("unknown status %q", req.Status)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	filters := catalog.ListFilters{
		Search:        req.Search,
		Brand:         req.Brand,
		Category:      req.Category,
		MinConfidence: req.MinConfidence,
	}
	result, err := s.daemon.ListProducts(s.ctx, status, filters, req.Offset, limit)
	if err != nil {
		return err
	}
	page := api.FromListResult(result)
	resp.Products = page.Products
	resp.TotalCount = page.TotalCount
	return nil
}

func (s *service) ProductDescribe(req ProductDescribeRequest, resp *ProductDescribeResponse) error {
	product, err := s.daemon.GetProduct(s.ctx, req.SKU)
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("product %q not found", req.SKU)
	}
	resp.Product = api.FromProduct(product)
	return nil
}

func (s *service) StatusCounts(_ StatusCountsRequest, resp *StatusCountsResponse) error {
	counts, err := s.daemon.StatusCounts(s.ctx)
	if err != nil {
		return err
	}
	resp.Counts = api.FromStatusCounts(counts)
	return nil
}

func (s *service) BulkTransition(req BulkTransitionRequest, resp *BulkTransitionResponse) error {
	tab, ok := pipeline.ParseStatus(req.Tab)
	if !ok {
		return fmt.Errorf("unknown tab %q", req.Tab)
	}
	action, ok := pipeline.ParseAction(req.Action)
	if !ok {
		return fmt.Errorf("unknown action %q", req.Action)
	}

	result, err := s.daemon.BulkTransition(s.ctx, bulk.Request{
		Tab:     tab,
		Action:  action,
		SKUs:    req.SKUs,
		ActorID: req.Actor,
	})
	if err != nil {
		return err
	}
	resp.UpdatedCount = result.UpdatedCount
	resp.TargetStatus = string(result.Target)
	resp.UndoID = result.UndoID
	s.log().Info("bulk transition applied via IPC",
		logging.String(logging.FieldEventType, "bulk_transition"),
		logging.String("action", req.Action),
		logging.Int("updated_count", result.UpdatedCount))
	return nil
}

func (s *service) BulkDelete(req BulkDeleteRequest, resp *BulkDeleteResponse) error {
	tab, ok := pipeline.ParseStatus(req.Tab)
	if !ok {
		return fmt.Errorf("unknown tab %q", req.Tab)
	}
	result, err := s.daemon.BulkDelete(s.ctx, tab, req.SKUs, req.Actor)
	if err != nil {
		return err
	}
	resp.Success = result.Success
	resp.DeletedCount = result.DeletedCount
	s.log().Info("bulk delete applied via IPC",
		logging.String(logging.FieldEventType, "bulk_delete"),
		logging.Int("deleted_count", result.DeletedCount))
	return nil
}

func (s *service) UndoList(_ UndoListRequest, resp *UndoListResponse) error {
	entries := s.daemon.UndoEntries()
	now := time.Now()
	resp.Entries = make([]UndoEntry, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, api.FromUndoEntry(entry, now))
	}
	return nil
}

func (s *service) UndoRevert(req UndoRevertRequest, resp *UndoRevertResponse) error {
	if err := s.daemon.RevertUndo(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Reverted = true
	return nil
}

func (s *service) BatchSubmit(req BatchSubmitRequest, resp *BatchSubmitResponse) error {
	batchID, err := s.daemon.SubmitBatch(s.ctx, req.SKUs)
	if err != nil {
		return err
	}
	resp.BatchID = batchID
	return nil
}

func (s *service) BatchDescribe(req BatchDescribeRequest, resp *BatchDescribeResponse) error {
	batch, err := s.daemon.GetBatch(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("batch %q not found", req.ID)
	}
	resp.Batch = api.FromBatch(batch)
	return nil
}

func (s *service) BatchApply(req BatchApplyRequest, resp *BatchApplyResponse) error {
	applied, err := s.daemon.ApplyBatch(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Applied = applied
	return nil
}

func (s *service) BatchList(req BatchListRequest, resp *BatchListResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	batches, err := s.daemon.ListBatches(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Batches = make([]Batch, 0, len(batches))
	for _, batch := range batches {
		resp.Batches = append(resp.Batches, api.FromBatch(batch))
	}
	return nil
}

func (s *service) ProductRetry(req ProductRetryRequest, resp *ProductRetryResponse) error {
	if err := s.daemon.RetryProduct(s.ctx, req.SKU); err != nil {
		return err
	}
	resp.Retried = true
	return nil
}

func (s *service) AuditList(req AuditListRequest, resp *AuditListResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.daemon.ListAudit(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Entries = make([]AuditEntry, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, api.FromAuditEntry(entry))
	}
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 200
	}
	ctx := s.ctx
	wait := req.WaitMillis > 0
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, time.Duration(req.WaitMillis)*time.Millisecond)
		defer cancel()
	}
	events, next, err := s.daemon.Hub().Fetch(ctx, req.Since, limit, wait)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Events = api.FromBatchEvents(events)
	resp.NextSequence = next
	return nil
}

func (s *service) SessionOpen(req SessionOpenRequest, resp *SessionOpenResponse) error {
	id, err := s.daemon.OpenSession(req.Actor)
	if err != nil {
		return err
	}
	resp.SessionID = id
	return nil
}

func (s *service) SessionClose(req SessionCloseRequest, resp *SessionCloseResponse) error {
	if err := s.daemon.CloseSession(req.SessionID); err != nil {
		return err
	}
	resp.Closed = true
	return nil
}

func (s *service) SessionFilter(req SessionFilterRequest, _ *SessionFilterResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	status, ok := pipeline.ParseStatus(req.Status)
	if !ok {
		return fmt.Errorf("unknown status %q", req.Status)
	}
	session.SetFilter(status, catalog.ListFilters{
		Search:        req.Search,
		Brand:         req.Brand,
		Category:      req.Category,
		MinConfidence: req.MinConfidence,
	})
	return nil
}

func (s *service) SessionPage(req SessionPageRequest, resp *SessionPageResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	result, err := session.Page(s.ctx, req.Offset, limit)
	if err != nil {
		return err
	}
	page := api.FromListResult(result)
	resp.Products = page.Products
	resp.TotalCount = page.TotalCount
	resp.Selected = session.Selection()
	return nil
}

func (s *service) SessionToggle(req SessionToggleRequest, resp *SessionToggleResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	session.Toggle(req.SKU, req.Index, req.Range)
	resp.SelectedCount = len(session.Selection())
	return nil
}

func (s *service) SessionToggleAll(req SessionToggleAllRequest, resp *SessionToggleAllResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	session.ToggleAllVisible()
	resp.SelectedCount = len(session.Selection())
	return nil
}

func (s *service) SessionSelectAll(req SessionSelectAllRequest, resp *SessionSelectAllResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	count, err := session.SelectAllMatching(s.ctx)
	if err != nil {
		return err
	}
	resp.SelectedCount = count
	return nil
}

func (s *service) SessionApply(req SessionApplyRequest, resp *SessionApplyResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	action, ok := pipeline.ParseAction(req.Action)
	if !ok {
		return fmt.Errorf("unknown action %q", req.Action)
	}
	result, err := session.Apply(s.ctx, action)
	if err != nil {
		return err
	}
	resp.UpdatedCount = result.UpdatedCount
	resp.TargetStatus = string(result.Target)
	resp.UndoID = result.UndoID
	s.log().Info("session bulk action applied",
		logging.String(logging.FieldEventType, "session_apply"),
		logging.String("action", req.Action),
		logging.Int("updated_count", result.UpdatedCount))
	return nil
}

func (s *service) SessionDelete(req SessionDeleteRequest, resp *SessionDeleteResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	result, err := session.Delete(s.ctx)
	if err != nil {
		return err
	}
	resp.Success = result.Success
	resp.DeletedCount = result.DeletedCount
	return nil
}

func (s *service) SessionConsolidate(req SessionConsolidateRequest, resp *SessionConsolidateResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	batchID, err := session.Consolidate(s.ctx)
	if err != nil {
		return err
	}
	resp.BatchID = batchID
	return nil
}

func (s *service) SessionUndoList(req SessionUndoListRequest, resp *SessionUndoListResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	entries := session.UndoEntries()
	now := time.Now()
	resp.Entries = make([]UndoEntry, 0, len(entries))
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, api.FromUndoEntry(entry, now))
	}
	return nil
}

func (s *service) SessionUndoRevert(req SessionUndoRevertRequest, resp *SessionUndoRevertResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	if err := session.Revert(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Reverted = true
	return nil
}

func (s *service) SessionBatchState(req SessionBatchStateRequest, resp *SessionBatchStateResponse) error {
	session, err := s.daemon.Session(req.SessionID)
	if err != nil {
		return err
	}
	state, known := session.BatchState(req.BatchID)
	resp.Known = known
	if known {
		resp.Progress = state.Progress
		resp.Status = string(state.Status)
		resp.Terminal = state.Terminal
	}
	resp.ConnectionStatus = string(session.ConnectionStatus())
	return nil
}
