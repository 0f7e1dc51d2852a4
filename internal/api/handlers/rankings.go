package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/pkg/logger"
)

// RankingsFetcher loads one page of rankings
type RankingsFetcher interface {
	FetchRankings(ctx context.Context, query contracts.RankingsQuery) ([]contracts.ScoreRecord, error)
}

// RankingsHandler proxies the backend leaderboard
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingsHandler struct {
	client RankingsFetcher
	logger *logger.Logger
}

// NewRankingsHandler creates a new rankings handler
func NewRankingsHandler(client RankingsFetcher, log *logger.Logger) *RankingsHandler {
	return &RankingsHandler{
		client: client,
		logger: log.Component("api.rankings"),
	}
}

// RankingsResponse is one normalized page
type RankingsResponse struct {
	Items    []contracts.ScoreRecord `json:"items"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
	ModelID  string                  `json:"model_id,omitempty"`
}

// GetRankings returns one page of rankings
// GET /api/rankings?page=1&page_size=10&model_id=beginner
func (h *RankingsHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := contracts.RankingsQuery{ModelID: params.Get("model_id")}
	var err error
	if query.Page, err = intParam(params.Get("page")); err != nil {
		respondError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	if query.PageSize, err = intParam(params.Get("page_size")); err != nil {
		respondError(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	normalized, err := query.Normalize()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.client.FetchRankings(r.Context(), normalized)
	if err != nil {
		respondUpstreamError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, RankingsResponse{
		Items:    items,
		Page:     normalized.Page,
		PageSize: normalized.PageSize,
		ModelID:  normalized.ModelID,
	})
}

// intParam parses an optional integer; empty means zero (the default)
func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
