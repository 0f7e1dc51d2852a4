// Package replays fetches recorded runs from the backend and hands them to
// the game runtime for playback.
package replays

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wonny/arcade/internal/backend"
	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/internal/kvstore"
	"github.com/wonny/arcade/pkg/logger"
)

// PathReplays is the replay metadata endpoint prefix
const PathReplays = "/api/replays/"

const (
	opMeta    = "replay meta"
	opContent = "replay content"
)

// ErrEmptyID is returned for a blank replay id
var ErrEmptyID = errors.New("replay id is required")

// Replay is downloaded replay content
type Replay struct {
	Raw     []byte
	Summary contracts.ReplaySummary
}

// Client loads replays
// ⭐ SSOT: 리플레이 메타/콘텐츠 조회는 이 클라이언트에서만
type Client struct {
	backend *backend.Client
	logger  *logger.Logger
}

// NewClient creates a replay client
func NewClient(b *backend.Client, log *logger.Logger) *Client {
	return &Client{
		backend: b,
		logger:  log.Component("replays"),
	}
}

// FetchReplayMeta returns metadata including a short-lived content URL
func (c *Client) FetchReplayMeta(ctx context.Context, id string) (contracts.ReplayMeta, error) {
	var meta contracts.ReplayMeta

	if strings.TrimSpace(id) == "" {
		return meta, ErrEmptyID
	}

	body, err := c.backend.GetJSON(ctx, opMeta, PathReplays+url.PathEscape(id), nil)
	if err != nil {
		return meta, err
	}

	if !gjson.ValidBytes(body) {
		return meta, &backend.ParseError{Source: opMeta, Err: errors.New("response body is not valid JSON")}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return meta, &backend.SchemaError{Op: opMeta, Reason: "expected object", Index: -1}
	}
	if u := root.Get("url"); u.Type != gjson.String || u.String() == "" {
		return meta, &backend.SchemaError{Op: opMeta, Reason: "missing url", Keys: backend.ObjectKeys(root), Index: -1}
	}

	if err := json.Unmarshal(body, &meta); err != nil {
		return meta, &backend.ParseError{Source: opMeta, Err: err}
	}

	return meta, nil
}

// LoadReplay downloads replay content from a (presigned) URL
func (c *Client) LoadReplay(ctx context.Context, contentURL string) (Replay, error) {
	body, err := c.backend.Fetch(ctx, opContent, contentURL)
	if err != nil {
		return Replay{}, err
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return Replay{}, &backend.ParseError{Source: opContent, Err: errors.New("replay is not a JSON object")}
	}

	return Replay{Raw: body, Summary: Summarize(body)}, nil
}

// Play fetches a replay by id and hands it to the runtime through the store
func (c *Client) Play(ctx context.Context, store kvstore.Store, id string) (contracts.ReplayMeta, Replay, error) {
	meta, err := c.FetchReplayMeta(ctx, id)
	if err != nil {
		return meta, Replay{}, err
	}

	replay, err := c.LoadReplay(ctx, meta.URL)
	if err != nil {
		return meta, Replay{}, err
	}

	if err := RequestReplay(ctx, store, replay.Raw); err != nil {
		return meta, replay, err
	}

	c.logger.WithFields(map[string]interface{}{
		"replay_id": meta.ID,
		"frames":    replay.Summary.Frames,
		"bytes":     replay.Summary.Bytes,
	}).Info("Replay handed to runtime")

	return meta, replay, nil
}

// Summarize reports the shape of replay content without decoding frames
func Summarize(raw []byte) contracts.ReplaySummary {
	root := gjson.ParseBytes(raw)

	modelID := root.Get("modelId").String()
	if modelID == "" {
		modelID = root.Get("model_id").String()
	}

	return contracts.ReplaySummary{
		Version:     root.Get("version").String(),
		ModelID:     modelID,
		Frames:      int(root.Get("frames.#").Int()),
		EnemyEvents: int(root.Get("enemy_events.#").Int()),
		Events:      int(root.Get("events.#").Int()),
		Bytes:       len(raw),
	}
}
