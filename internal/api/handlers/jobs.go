package handlers

import (
	"net/http"

	"github.com/wonny/arcade/internal/scheduler"
)

// JobsHandler reports scheduled job statistics
type JobsHandler struct {
	scheduler *scheduler.Scheduler
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(s *scheduler.Scheduler) *JobsHandler {
	return &JobsHandler{scheduler: s}
}

// GetStats returns per-job run statistics
// GET /api/jobs
func (h *JobsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}
