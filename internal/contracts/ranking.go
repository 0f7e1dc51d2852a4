package contracts

import (
	"errors"
	"net/url"
	"strconv"
)

// Page size bounds for ranking requests
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MinPageSize     = 1
	MaxPageSize     = 100
)

// ErrInvalidQuery is returned by RankingsQuery.Normalize for unusable input
var ErrInvalidQuery = errors.New("invalid rankings query")

// ScoreRecord is one leaderboard entry
// ⭐ SSOT: 랭킹 레코드 형식은 여기서만 정의
type ScoreRecord struct {
	ID         string            `json:"id"`
	Nickname   string            `json:"nickname"`
	Score      float64           `json:"score"`
	ModelID    string            `json:"model_id,omitempty"`
	CreatedAt  string            `json:"created_at,omitempty"`
	Statistics *RecordStatistics `json:"statistics,omitempty"`
}

// RecordStatistics is the optional stats block embedded in a ranking record
type RecordStatistics struct {
	TotalFrames  int     `json:"total_frames"`
	PlayDuration float64 `json:"play_duration"`
}

// RankingsQuery selects one page of rankings
type RankingsQuery struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	ModelID  string `json:"model_id,omitempty"`
}

// Normalize applies defaults and clamps page size into [1,100].
// Zero values take defaults; a negative page is rejected.
func (q RankingsQuery) Normalize() (RankingsQuery, error) {
	switch {
	case q.Page == 0:
		q.Page = DefaultPage
	case q.Page < 0:
		return q, errors.Join(ErrInvalidQuery, errors.New("page must be >= 1, got "+strconv.Itoa(q.Page)))
	}

	switch {
	case q.PageSize == 0:
		q.PageSize = DefaultPageSize
	case q.PageSize < MinPageSize:
		q.PageSize = MinPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}

	return q, nil
}

// Values encodes the query as request parameters. Call Normalize first.
func (q RankingsQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.ModelID != "" {
		v.Set("model_id", q.ModelID)
	}
	return v
}

// LeaderboardQuery is the fixed query behind the legacy leaderboard call
func LeaderboardQuery() RankingsQuery {
	return RankingsQuery{Page: 1, PageSize: MaxPageSize}
}
