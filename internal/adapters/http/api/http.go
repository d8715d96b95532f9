// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/showdown/internal/app"
	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/share"
	"github.com/okian/showdown/internal/domain/types"
	"github.com/okian/showdown/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Create(ctx context.Context, date string) (string, types.View, error)
	Get(ctx context.Context, id string) (types.View, error)
	Pick(ctx context.Context, id string, side deck.Side, idempotencyKey string) (types.View, error)
	Reset(ctx context.Context, id string) (types.View, error)
	Filter(ctx context.Context, id, team string) (types.View, error)
	ChangeDate(ctx context.Context, id, date string) (types.View, error)
	Retry(ctx context.Context, id string) (types.View, error)
	PathToVictory(ctx context.Context, id string) ([]deck.MatchLogEntry, error)
	Share(ctx context.Context, id, pageURL string) (share.Payload, error)
	Delete(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
	logger          logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(deps, log),
		logger:          log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	h := s.sessionsHandler
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(h.HandleCreate, "sessions_create"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(h.HandleGet, "sessions_get"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(h.HandleDelete, "sessions_delete"))
	mux.HandleFunc("POST /sessions/{id}/pick", MetricsMiddleware(h.HandlePick, "sessions_pick"))
	mux.HandleFunc("POST /sessions/{id}/reset", MetricsMiddleware(h.HandleReset, "sessions_reset"))
	mux.HandleFunc("POST /sessions/{id}/filter", MetricsMiddleware(h.HandleFilter, "sessions_filter"))
	mux.HandleFunc("POST /sessions/{id}/date", MetricsMiddleware(h.HandleDate, "sessions_date"))
	mux.HandleFunc("POST /sessions/{id}/retry", MetricsMiddleware(h.HandleRetry, "sessions_retry"))
	mux.HandleFunc("GET /sessions/{id}/path", MetricsMiddleware(h.HandlePath, "sessions_path"))
	mux.HandleFunc("GET /sessions/{id}/share", MetricsMiddleware(h.HandleShare, "sessions_share"))
}

// Handler returns mux wrapped in the panic boundary.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	return Recover(mux, s.logger)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors to HTTP answers.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotFinished):
		writeError(w, http.StatusConflict, "not_finished", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrCapacity):
		writeError(w, http.StatusServiceUnavailable, "capacity", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
