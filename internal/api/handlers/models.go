package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/pkg/config"
)

// ModelsHandler serves the play model catalog
type ModelsHandler struct {
	cfg *config.Config
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config) *ModelsHandler {
	return &ModelsHandler{cfg: cfg}
}

func (h *ModelsHandler) withURLs(m contracts.ModelInfo) contracts.ModelInfo {
	m.StreamURL = h.cfg.StreamURL(m.ID)
	m.ReplayID = h.cfg.ReplayID(m.ID)
	return m
}

// ListModels returns every model with its configured stream and replay
// GET /api/models
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	out := make([]contracts.ModelInfo, 0, len(contracts.Models))
	for _, m := range contracts.Models {
		out = append(out, h.withURLs(m))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetModel returns one model
// GET /api/models/{id}
func (h *ModelsHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	m, ok := contracts.ModelByID(mux.Vars(r)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "unknown model")
		return
	}
	respondJSON(w, http.StatusOK, h.withURLs(m))
}
