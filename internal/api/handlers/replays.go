package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/internal/kvstore"
	"github.com/wonny/arcade/internal/replays"
	"github.com/wonny/arcade/pkg/logger"
)

// ReplayService loads replays and hands them to the runtime
type ReplayService interface {
	FetchReplayMeta(ctx context.Context, id string) (contracts.ReplayMeta, error)
	Play(ctx context.Context, store kvstore.Store, id string) (contracts.ReplayMeta, replays.Replay, error)
}

// ReplayHandler serves replay metadata and playback requests
type ReplayHandler struct {
	service ReplayService
	store   kvstore.Store
	logger  *logger.Logger
}

// NewReplayHandler creates a new replay handler
func NewReplayHandler(service ReplayService, store kvstore.Store, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{
		service: service,
		store:   store,
		logger:  log.Component("api.replays"),
	}
}

// PlayResponse describes a replay handed to the runtime
type PlayResponse struct {
	Meta    contracts.ReplayMeta    `json:"meta"`
	Summary contracts.ReplaySummary `json:"summary"`
}

// GetReplay returns replay metadata
// GET /api/replays/{id}
func (h *ReplayHandler) GetReplay(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.FetchReplayMeta(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondReplayError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// PlayReplay downloads a replay and asks the runtime to play it
// POST /api/replays/{id}/play
func (h *ReplayHandler) PlayReplay(w http.ResponseWriter, r *http.Request) {
	meta, replay, err := h.service.Play(r.Context(), h.store, mux.Vars(r)["id"])
	if err != nil {
		h.respondReplayError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, PlayResponse{Meta: meta, Summary: replay.Summary})
}

// ReplayStatus reports whether a replay is waiting for the runtime
type ReplayStatus struct {
	Pending bool `json:"pending"`
}

// CurrentReplay reports whether the runtime has yet to pick up a replay
// GET /api/replays/current
func (h *ReplayHandler) CurrentReplay(w http.ResponseWriter, r *http.Request) {
	pending, err := replays.ReplayPending(r.Context(), h.store)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read replay state")
		respondError(w, http.StatusInternalServerError, "failed to read replay state")
		return
	}
	respondJSON(w, http.StatusOK, ReplayStatus{Pending: pending})
}

// CancelReplay withdraws a replay the runtime has not started
// DELETE /api/replays/current
func (h *ReplayHandler) CancelReplay(w http.ResponseWriter, r *http.Request) {
	if err := replays.CancelReplay(r.Context(), h.store); err != nil {
		h.logger.WithError(err).Error("Failed to cancel replay")
		respondError(w, http.StatusInternalServerError, "failed to cancel replay")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReplayHandler) respondReplayError(w http.ResponseWriter, err error) {
	if errors.Is(err, replays.ErrEmptyID) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondUpstreamError(w, h.logger, err)
}
