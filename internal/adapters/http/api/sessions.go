package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/showdown/internal/app"
	"github.com/okian/showdown/internal/app/session"
	"github.com/okian/showdown/internal/domain/deck"
	"github.com/okian/showdown/internal/domain/types"
	"github.com/okian/showdown/pkg/logger"
)

// IdempotencyHeader carries the client key that deduplicates picks.
const IdempotencyHeader = "Idempotency-Key"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 12

type createResponse struct {
	SessionID string     `json:"session_id"`
	View      types.View `json:"view"`
}

type pickRequest struct {
	Side string `json:"side"`
}

type filterRequest struct {
	Team string `json:"team"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type pathResponse struct {
	Path []deck.MatchLogEntry `json:"path"`
}

// SessionsHandler serves the session routes.
type SessionsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies, log logger.Logger) *SessionsHandler {
	return &SessionsHandler{deps: deps, logger: log}
}

// HandleCreate handles POST /sessions[?date=YYYY-MM-DD].
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse(session.DateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("date must be YYYY-MM-DD")))
			return
		}
	}
	id, view, err := h.deps.Create(r.Context(), date)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+id)
	writeJSON(w, http.StatusCreated, createResponse{SessionID: id, View: view})
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Get(r.Context(), r.PathValue("id"))
	h.respond(w, r, "api.get_session", view, err)
}

// HandlePick handles POST /sessions/{id}/pick.
func (h *SessionsHandler) HandlePick(w http.ResponseWriter, r *http.Request) {
	const op = "api.pick"
	var req pickRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	side, ok := deck.ParseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("side must be left or right")))
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	view, err := h.deps.Pick(r.Context(), r.PathValue("id"), side, key)
	h.respond(w, r, op, view, err)
}

// HandleReset handles POST /sessions/{id}/reset.
func (h *SessionsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Reset(r.Context(), r.PathValue("id"))
	h.respond(w, r, "api.reset", view, err)
}

// HandleFilter handles POST /sessions/{id}/filter.
func (h *SessionsHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	const op = "api.filter"
	var req filterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.Filter(r.Context(), r.PathValue("id"), req.Team)
	h.respond(w, r, op, view, err)
}

// HandleDate handles POST /sessions/{id}/date.
func (h *SessionsHandler) HandleDate(w http.ResponseWriter, r *http.Request) {
	const op = "api.change_date"
	var req dateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.ChangeDate(r.Context(), r.PathValue("id"), req.Date)
	h.respond(w, r, op, view, err)
}

// HandleRetry handles POST /sessions/{id}/retry.
func (h *SessionsHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Retry(r.Context(), r.PathValue("id"))
	h.respond(w, r, "api.retry", view, err)
}

// HandlePath handles GET /sessions/{id}/path. Unfinished sessions are 404.
func (h *SessionsHandler) HandlePath(w http.ResponseWriter, r *http.Request) {
	const op = "api.path"
	path, err := h.deps.PathToVictory(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFinished) {
			writeError(w, http.StatusNotFound, "not_finished", WrapKind(op, ErrNotFound, err))
			return
		}
		writeServiceError(w, op, err)
		return
	}
	if path == nil {
		path = []deck.MatchLogEntry{}
	}
	writeJSON(w, http.StatusOK, pathResponse{Path: path})
}

// HandleShare handles GET /sessions/{id}/share[?url=].
func (h *SessionsHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pageURL := r.URL.Query().Get("url")
	payload, err := h.deps.Share(r.Context(), id, pageURL)
	if err != nil {
		writeServiceError(w, "api.share", err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "api.delete_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) respond(w http.ResponseWriter, r *http.Request, op string, view types.View, err error) {
	if err != nil {
		h.logger.Debug(r.Context(), "session request failed", logger.String("op", op), logger.Error(err))
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// decode reads a small JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
