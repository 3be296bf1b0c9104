// Package api exposes the aggregation engine over HTTP.
//
// POST /api/v1/aggregate accepts an aggregation request and runs it in
// the background, answering 202 with the request id immediately; the
// finished report is fetched with GET /api/v1/reports/{id}. Adding
// ?dry_run=true runs synchronously without license analysis or
// persistence and returns the report inline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/buildinfo"
	stackerrors "github.com/stackaudit/stackaudit/pkg/errors"
	"github.com/stackaudit/stackaudit/pkg/store"
)

// backgroundTimeout bounds one detached aggregation run.
const backgroundTimeout = 10 * time.Minute

// Server wires the aggregation engine and report store into HTTP
// handlers.
type Server struct {
	Agg    *aggregator.Aggregator
	Store  store.Store
	Logger *log.Logger
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/aggregate", s.handleAggregate)
		r.Get("/reports/{id}", s.handleGetReport)
		r.Get("/reports", s.handleListReports)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// handleAggregate accepts an aggregation request. The default mode
// persists the report and answers 202 with the request id; dry_run=true
// runs synchronously and returns the report body.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("dry_run") == "true" {
		outcome, err := s.Agg.Execute(r.Context(), &req, false)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, outcome)
		return
	}

	go s.runDetached(&req)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"external_request_id": req.RequestID,
		"status":              "accepted",
	})
}

// runDetached executes one aggregation outside the request lifecycle.
// The outcome lands in the store; failures are only logged since the
// client is gone.
func (s *Server) runDetached(req *aggregator.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	outcome, err := s.Agg.Execute(ctx, req, true)
	if err != nil {
		s.Logger.Error("background aggregation failed", "request_id", req.RequestID, "err", err)
		return
	}
	if outcome.Status != aggregator.StatusSuccess {
		s.Logger.Error("background aggregation did not persist",
			"request_id", req.RequestID, "status", outcome.Status, "message", outcome.Message)
	}
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := stackerrors.ValidateRequestID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.Store.GetResult(r.Context(), id)
	if err != nil {
		if stackerrors.Is(err, stackerrors.ErrCodeReportNotFound) {
			writeError(w, http.StatusNotFound, "no report for request "+id)
			return
		}
		s.Logger.Error("report lookup failed", "request_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "report lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Store.ListRequestIDs(r.Context())
	if err != nil {
		s.Logger.Error("report listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "report listing failed")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_ids": ids})
}

// ListenAndServe runs the API server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
