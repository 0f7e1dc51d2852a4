package rankings

import (
	"context"

	"github.com/wonny/arcade/internal/backend"
	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/pkg/logger"
)

// Backend endpoints
const (
	PathRankings = "/api/gameplay/rankings"
	PathGameplay = "/api/gameplay"
	PathScores   = "/api/scores"
)

// Client fetches leaderboard pages and submits finished runs
// ⭐ SSOT: 랭킹 조회/점수 제출은 이 클라이언트에서만
type Client struct {
	backend *backend.Client
	logger  *logger.Logger
}

// NewClient creates a rankings client on top of a backend client
func NewClient(b *backend.Client, log *logger.Logger) *Client {
	return &Client{
		backend: b,
		logger:  log.Component("rankings"),
	}
}

// FetchRankings returns one page of ranking records in backend order.
// No caching and no retry; an empty page is a valid result.
func (c *Client) FetchRankings(ctx context.Context, query contracts.RankingsQuery) ([]contracts.ScoreRecord, error) {
	q, err := query.Normalize()
	if err != nil {
		return nil, err
	}

	body, err := c.backend.GetJSON(ctx, opRankings, PathRankings, q.Values())
	if err != nil {
		return nil, err
	}

	records, err := decodeRankings(body)
	if err != nil {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"page":      q.Page,
			"page_size": q.PageSize,
			"model_id":  q.ModelID,
		}).Warn("Rejected rankings response")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"page":      q.Page,
		"page_size": q.PageSize,
		"model_id":  q.ModelID,
		"count":     len(records),
	}).Debug("Fetched rankings")

	return records, nil
}

// FetchLeaderboard returns the first 100 records across all models.
//
// Deprecated: use FetchRankings.
func (c *Client) FetchLeaderboard(ctx context.Context) ([]contracts.ScoreRecord, error) {
	return c.FetchRankings(ctx, contracts.LeaderboardQuery())
}
