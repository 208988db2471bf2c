// Package api is the ops HTTP surface: health, metrics, and a
// read-only view of a conversation's current orders. It owns no order
// semantics; chat interaction happens in the bot package.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/MayStepanyan/lunchbreakbot/internal/observability"
	"github.com/MayStepanyan/lunchbreakbot/internal/orders"
)

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type Server struct {
	mux     *http.ServeMux
	orders  *orders.Service
	logger  observability.Logger
	metrics *observability.Metrics
}

// NewServer creates the ops server. If logger is nil a default logger
// is used; if metrics is nil the /metrics endpoint is absent.
func NewServer(svc *orders.Service, logger observability.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	s := &Server{
		mux:     http.NewServeMux(),
		orders:  svc,
		logger:  logger.WithComponent("api"),
		metrics: metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	s.mux.HandleFunc("GET /api/conversations/{id}/summary", s.handleSummary)
}

// Handler returns the fully wired handler chain.
func (s *Server) Handler() http.Handler {
	return RequestIDMiddleware()(LoggingMiddleware(s.logger, s.metrics)(s.mux))
}

func (s *Server) writeErr(ctx context.Context, w http.ResponseWriter, code int, msg, detail string) {
	if code >= 500 {
		s.logger.ErrorContext(ctx, "request failed", "status", code, "error", msg, "detail", detail)
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureMessage(msg + ": " + detail)
		}
	}
	writeJSON(w, code, apiError{Error: msg, Detail: detail})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// summaryResponse is the read-only conversation view.
type summaryResponse struct {
	ConversationID string `json:"conversation_id"`
	Collecting     bool   `json:"collecting"`
	TotalItems     int    `json:"total_items"`
	Summary        string `json:"summary"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := r.PathValue("id")

	collecting, err := s.orders.IsCollecting(ctx, conversationID)
	if err != nil {
		s.storeErr(ctx, w, err)
		return
	}
	all, err := s.orders.AllOrders(ctx, conversationID)
	if err != nil {
		s.storeErr(ctx, w, err)
		return
	}
	s.metrics.RecordSummaryRendered()
	writeJSON(w, http.StatusOK, summaryResponse{
		ConversationID: conversationID,
		Collecting:     collecting,
		TotalItems:     len(all),
		Summary:        orders.Summarize(all),
	})
}

func (s *Server) storeErr(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, orders.ErrValidation) {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid conversation id", err.Error())
		return
	}
	s.metrics.RecordStoreError()
	s.writeErr(ctx, w, http.StatusInternalServerError, "store error", err.Error())
}
