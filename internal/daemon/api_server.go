package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"conveyor/internal/api"
	"conveyor/internal/bulk"
	"conveyor/internal/catalog"
	"conveyor/internal/config"
	"conveyor/internal/consolidation"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
	"conveyor/internal/undo"
)

const defaultPageLimit = 50

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Server.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	router := chi.NewRouter()
	router.Use(authMiddleware(cfg.Server.APIToken))
	router.Route("/api", func(r chi.Router) {
		r.Get("/status", srv.handleStatus)
		r.Get("/events", srv.handleEvents)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", srv.handleListProducts)
			r.Get("/counts", srv.handleCounts)
			r.Get("/{sku}", srv.handleGetProduct)
			r.Post("/{sku}/retry", srv.handleRetryProduct)
		})
		r.Post("/bulk/status", srv.handleBulkTransition)
		r.Post("/bulk/delete", srv.handleBulkDelete)
		r.Route("/undo", func(r chi.Router) {
			r.Get("/", srv.handleUndoList)
			r.Post("/{id}/revert", srv.handleUndoRevert)
		})
		r.Route("/batches", func(r chi.Router) {
			r.Get("/", srv.handleListBatches)
			r.Post("/", srv.handleSubmitBatch)
			r.Get("/{id}", srv.handleGetBatch)
			r.Post("/{id}/apply", srv.handleApplyBatch)
		})
		r.Get("/audit", srv.handleAudit)
	})

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		StatusCounts: api.FromStatusCounts(status.StatusCounts),
		WorkerActive: status.Running,
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status, ok := pipeline.ParseStatus(query.Get("status"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", query.Get("status")))
		return
	}

	filters := catalog.ListFilters{
		Search:   query.Get("search"),
		Brand:    query.Get("brand"),
		Category: query.Get("category"),
	}
	if raw := strings.TrimSpace(query.Get("minConfidence")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid minConfidence")
			return
		}
		filters.MinConfidence = value
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultPageLimit
	}

	result, err := s.daemon.ListProducts(r.Context(), status, filters, offset, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromListResult(result))
}

func (s *apiServer) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.daemon.StatusCounts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromStatusCounts(counts))
}

func (s *apiServer) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	product, err := s.daemon.GetProduct(r.Context(), sku)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if product == nil {
		s.writeError(w, http.StatusNotFound, "product not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromProduct(product))
}

func (s *apiServer) handleRetryProduct(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")
	if err := s.daemon.RetryProduct(r.Context(), sku); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"sku": sku, "status": string(pipeline.StatusScraped)})
}

type bulkTransitionPayload struct {
	Tab    string   `json:"tab"`
	Action string   `json:"action"`
	SKUs   []string `json:"skus"`
	Actor  string   `json:"actor"`
}

func (s *apiServer) handleBulkTransition(w http.ResponseWriter, r *http.Request) {
	var payload bulkTransitionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tab, ok := pipeline.ParseStatus(payload.Tab)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown tab %q", payload.Tab))
		return
	}
	action, ok := pipeline.ParseAction(payload.Action)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", payload.Action))
		return
	}

	result, err := s.daemon.BulkTransition(r.Context(), bulk.Request{
		Tab:     tab,
		Action:  action,
		SKUs:    payload.SKUs,
		ActorID: payload.Actor,
	})
	if err != nil {
		s.writeError(w, bulkStatusCode(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.BulkTransitionResult{
		UpdatedCount: result.UpdatedCount,
		TargetStatus: string(result.Target),
		UndoID:       result.UndoID,
	})
}

type bulkDeletePayload struct {
	Tab   string   `json:"tab"`
	SKUs  []string `json:"skus"`
	Actor string   `json:"actor"`
}

func (s *apiServer) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var payload bulkDeletePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tab, ok := pipeline.ParseStatus(payload.Tab)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown tab %q", payload.Tab))
		return
	}

	result, err := s.daemon.BulkDelete(r.Context(), tab, payload.SKUs, payload.Actor)
	if err != nil {
		s.writeError(w, bulkStatusCode(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.BulkDeleteResult{
		Success:      result.Success,
		DeletedCount: result.DeletedCount,
	})
}

func (s *apiServer) handleUndoList(w http.ResponseWriter, r *http.Request) {
	entries := s.daemon.UndoEntries()
	now := time.Now()
	out := make([]api.UndoEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, api.FromUndoEntry(entry, now))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleUndoRevert(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "id")
	if err := s.daemon.RevertUndo(r.Context(), entryID); err != nil {
		if errors.Is(err, undo.ErrExpired) {
			s.writeError(w, http.StatusGone, err.Error())
			return
		}
		if errors.Is(err, undo.ErrRevertInFlight) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"reverted": entryID})
}

type submitBatchPayload struct {
	SKUs []string `json:"skus"`
}

func (s *apiServer) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	var payload submitBatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	batchID, err := s.daemon.SubmitBatch(r.Context(), payload.SKUs)
	if err != nil {
		if errors.Is(err, consolidation.ErrNothingToConsolidate) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"batchId": batchID})
}

func (s *apiServer) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultPageLimit
	}
	batches, err := s.daemon.ListBatches(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]api.Batch, 0, len(batches))
	for _, batch := range batches {
		out = append(out, api.FromBatch(batch))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := s.daemon.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if batch == nil {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromBatch(batch))
}

func (s *apiServer) handleApplyBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")
	applied, err := s.daemon.ApplyBatch(r.Context(), batchID)
	if err != nil {
		if errors.Is(err, consolidation.ErrBatchNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"batchId": batchID, "applied": applied})
}

func (s *apiServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultPageLimit
	}
	entries, err := s.daemon.ListAudit(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]api.AuditEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, api.FromAuditEntry(entry))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleEvents serves the batch progress stream. With follow=1 the request
// blocks until an event past the cursor arrives or the client goes away.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	events, next, err := s.daemon.Hub().Fetch(r.Context(), since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventStreamResponse{
		Events:       api.FromBatchEvents(events),
		NextSequence: next,
	})
}

func bulkStatusCode(err error) int {
	switch {
	case errors.Is(err, bulk.ErrEmptySelection):
		return http.StatusBadRequest
	case errors.Is(err, bulk.ErrStagingReadOnly), errors.Is(err, bulk.ErrNotAllowed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.WithComponent(s.logger, "api-server")
	}
	return logging.NewNop()
}
