package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/arcade/pkg/database"
	"github.com/wonny/arcade/pkg/redis"
)

// HealthHandler reports process and dependency health
type HealthHandler struct {
	db    *database.DB
	redis *redis.Client
}

// NewHealthHandler creates a health handler; nil dependencies are reported as disabled
func NewHealthHandler(db *database.DB, rc *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rc}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string                 `json:"status"`
	Service  string                 `json:"service"`
	Database *database.HealthStatus `json:"database,omitempty"`
	Redis    string                 `json:"redis"`
}

// Health returns 200 while the process is up; dependency problems mark it degraded
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Service: "arcade-host", Redis: "disabled"}

	if h.db != nil {
		status := h.db.HealthCheck(ctx)
		resp.Database = &status
		if !status.Healthy {
			resp.Status = "degraded"
		}
	}

	if h.redis != nil && h.redis.Enabled() {
		resp.Redis = "ok"
		if err := h.redis.Redis().Ping(ctx).Err(); err != nil {
			resp.Redis = err.Error()
			resp.Status = "degraded"
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
