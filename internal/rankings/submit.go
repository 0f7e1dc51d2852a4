package rankings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/wonny/arcade/internal/backend"
)

// MaxNicknameLength bounds nicknames accepted for submission
const MaxNicknameLength = 32

// ErrorKind classifies a failed submission
type ErrorKind string

const (
	// KindUnreachable means the request never reached the server
	KindUnreachable ErrorKind = "unreachable"
	// KindRejected means the server answered with a non-2xx status
	KindRejected ErrorKind = "rejected"
	// KindInvalid means the submission was refused locally and never sent
	KindInvalid ErrorKind = "invalid"
	// KindUnconfirmed means the request was sent but no answer arrived;
	// the server may have recorded the run
	KindUnconfirmed ErrorKind = "unconfirmed"
)

// APIError describes why a submission did not succeed
type APIError struct {
	Kind       ErrorKind `json:"kind"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// SubmitResult is the tagged outcome of a submission. Check OK; Err is set otherwise.
type SubmitResult struct {
	OK      bool      `json:"ok"`
	ID      string    `json:"id,omitempty"`
	Message string    `json:"message,omitempty"`
	Err     *APIError `json:"error,omitempty"`
}

// GamePlaySubmission is a finished run plus the identity it is filed under.
// Payload is the raw GameResultPayload JSON exactly as the runtime wrote it.
type GamePlaySubmission struct {
	Nickname string
	ModelID  string
	Payload  []byte
}

// LegacyScore is the body of the legacy score endpoint
type LegacyScore struct {
	Nickname string  `json:"nickname"`
	Score    float64 `json:"score"`
	ModelID  string  `json:"modelId,omitempty"`
}

// SubmitGamePlayData posts a finished run. Failures are returned in the result, never as an error.
func (c *Client) SubmitGamePlayData(ctx context.Context, sub GamePlaySubmission) SubmitResult {
	body, err := BuildGameplayBody(sub)
	if err != nil {
		return SubmitResult{Err: &APIError{Kind: KindInvalid, Message: err.Error()}}
	}

	res := c.post(ctx, "submit gameplay", PathGameplay, body)
	c.logResult(res, sub.Nickname, sub.ModelID)
	return res
}

// SubmitScore posts to the legacy score endpoint
func (c *Client) SubmitScore(ctx context.Context, score LegacyScore) SubmitResult {
	if err := ValidateNickname(score.Nickname); err != nil {
		return SubmitResult{Err: &APIError{Kind: KindInvalid, Message: err.Error()}}
	}

	body, err := sjson.SetBytes([]byte(`{}`), "nickname", score.Nickname)
	if err == nil {
		body, err = sjson.SetBytes(body, "score", score.Score)
	}
	if err == nil && score.ModelID != "" {
		body, err = sjson.SetBytes(body, "modelId", score.ModelID)
	}
	if err != nil {
		return SubmitResult{Err: &APIError{Kind: KindInvalid, Message: err.Error()}}
	}

	res := c.post(ctx, "submit score", PathScores, body)
	c.logResult(res, score.Nickname, score.ModelID)
	return res
}

// BuildGameplayBody stamps nickname and model_id onto the raw payload.
// Fields the host does not model are passed through untouched.
func BuildGameplayBody(sub GamePlaySubmission) ([]byte, error) {
	if err := ValidateNickname(sub.Nickname); err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(sub.Payload) || !gjson.ParseBytes(sub.Payload).IsObject() {
		return nil, errors.New("payload is not a JSON object")
	}
	if score := gjson.GetBytes(sub.Payload, "score"); score.Type != gjson.Number {
		return nil, errors.New("payload has no numeric score")
	}

	body := append([]byte(nil), sub.Payload...)

	var err error
	if body, err = sjson.SetBytes(body, "nickname", strings.TrimSpace(sub.Nickname)); err != nil {
		return nil, fmt.Errorf("set nickname: %w", err)
	}

	if sub.ModelID != "" {
		body, err = sjson.SetBytes(body, "model_id", sub.ModelID)
	} else {
		body, err = sjson.DeleteBytes(body, "model_id")
	}
	if err != nil {
		return nil, fmt.Errorf("set model_id: %w", err)
	}

	for _, key := range []string{"frames", "enemy_events"} {
		if !gjson.GetBytes(body, key).Exists() {
			if body, err = sjson.SetRawBytes(body, key, []byte(`[]`)); err != nil {
				return nil, fmt.Errorf("default %s: %w", key, err)
			}
		}
	}
	if !gjson.GetBytes(body, "statistics").Exists() {
		if body, err = sjson.SetRawBytes(body, "statistics", []byte(`{}`)); err != nil {
			return nil, fmt.Errorf("default statistics: %w", err)
		}
	}

	return body, nil
}

// ValidateNickname checks a nickname before it is sent anywhere
func ValidateNickname(nickname string) error {
	trimmed := strings.TrimSpace(nickname)
	if trimmed == "" {
		return errors.New("nickname is required")
	}
	if utf8.RuneCountInString(trimmed) > MaxNicknameLength {
		return fmt.Errorf("nickname must be at most %d characters", MaxNicknameLength)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, body []byte) SubmitResult {
	status, respBody, err := c.backend.PostJSON(ctx, op, path, body)
	if err != nil {
		var te *backend.TransportError
		switch {
		case !errors.As(err, &te) || te.Unreachable():
			return SubmitResult{Err: &APIError{Kind: KindUnreachable, Message: "could not reach server"}}
		case te.Unanswered():
			return SubmitResult{Err: &APIError{Kind: KindUnconfirmed, Message: "no response from server; the run may have been recorded"}}
		default:
			return SubmitResult{Err: &APIError{Kind: KindRejected, StatusCode: te.StatusCode, Message: err.Error()}}
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return SubmitResult{Err: &APIError{Kind: KindRejected, StatusCode: status, Message: rejectionMessage(status, respBody)}}
	}

	res := SubmitResult{OK: true}
	if gjson.ValidBytes(respBody) {
		res.ID = gjson.GetBytes(respBody, "id").String()
		res.Message = gjson.GetBytes(respBody, "message").String()
	}
	return res
}

func rejectionMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"detail", "error", "message"} {
			if v := gjson.GetBytes(body, key); v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && utf8.Valid(body) {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func (c *Client) logResult(res SubmitResult, nickname, modelID string) {
	log := c.logger.WithFields(map[string]interface{}{
		"nickname": nickname,
		"model_id": modelID,
	})
	if res.OK {
		log.WithField("id", res.ID).Info("Submission accepted")
		return
	}
	log.WithFields(map[string]interface{}{
		"kind":        res.Err.Kind,
		"status_code": res.Err.StatusCode,
	}).Warn(res.Err.Message)
}
