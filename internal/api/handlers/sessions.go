package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/arcade/internal/rankings"
	"github.com/wonny/arcade/internal/session"
	"github.com/wonny/arcade/pkg/logger"
)

// SessionHandler exposes the play session lifecycle
// ⭐ SSOT: 세션 API 핸들러는 이 구조체에서만
type SessionHandler struct {
	manager *session.Manager
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(manager *session.Manager, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  log.Component("api.sessions"),
	}
}

// CreateSessionRequest starts a session for a model
type CreateSessionRequest struct {
	ModelID string `json:"model_id"`
}

// SubmitRequest carries the nickname a pending result is filed under
type SubmitRequest struct {
	Nickname string `json:"nickname"`
}

// CreateSession starts listening for a finished run, replacing any active session
// POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info, err := h.manager.Start(req.ModelID)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

// GetSession returns the session and any result waiting for submission
// GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		h.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// DeleteSession stops polling for the session
// DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Stop(mux.Vars(r)["id"]); err != nil {
		h.respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit sends the pending result to the ranking backend
// POST /api/sessions/{id}/submit
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.manager.Submit(r.Context(), mux.Vars(r)["id"], req.Nickname)
	if err != nil {
		h.respondSessionError(w, err)
		return
	}

	respondJSON(w, submitStatus(res), res)
}

// submitStatus keeps "never reached the server" apart from "server said no"
func submitStatus(res rankings.SubmitResult) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.Err.Kind {
	case rankings.KindUnreachable:
		return http.StatusBadGateway
	case rankings.KindUnconfirmed:
		return http.StatusGatewayTimeout
	case rankings.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *SessionHandler) respondSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrUnknownModel):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNoPendingResult),
		errors.Is(err, session.ErrSubmitInFlight),
		errors.Is(err, session.ErrAlreadyStarted):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.WithError(err).Error("Session operation failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
