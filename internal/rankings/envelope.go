package rankings

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wonny/arcade/internal/backend"
	"github.com/wonny/arcade/internal/contracts"
)

const opRankings = "rankings"

// envelopeKeys are tried in order; the first array-typed value wins
var envelopeKeys = []string{"data", "items", "rankings", "results"}

// decodeRankings turns a rankings response body into validated records.
// Accepts a bare array or an object wrapping one under an envelope key.
func decodeRankings(body []byte) ([]contracts.ScoreRecord, error) {
	list, err := extractRecordArray(body)
	if err != nil {
		return nil, err
	}

	items := list.Array()
	records := make([]contracts.ScoreRecord, 0, len(items))
	seen := make(map[string]int, len(items))

	for i, item := range items {
		rec, err := decodeRecord(i, item)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[rec.ID]; dup {
			return nil, &backend.SchemaError{
				Op:     opRankings,
				Reason: fmt.Sprintf("duplicate id %q (first seen at record %d)", rec.ID, prev),
				Index:  i,
			}
		}
		seen[rec.ID] = i
		records = append(records, rec)
	}

	return records, nil
}

func extractRecordArray(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &backend.ParseError{Source: opRankings, Err: errors.New("response body is not valid JSON")}
	}

	root := gjson.ParseBytes(body)
	if root.IsArray() {
		return root, nil
	}

	if !root.IsObject() {
		return gjson.Result{}, &backend.SchemaError{
			Op:     opRankings,
			Reason: fmt.Sprintf("expected array or object, got %s", strings.ToLower(root.Type.String())),
			Index:  -1,
		}
	}

	for _, key := range envelopeKeys {
		if v := root.Get(key); v.IsArray() {
			return v, nil
		}
	}

	return gjson.Result{}, &backend.SchemaError{
		Op:     opRankings,
		Reason: "no recognized record array (want one of data, items, rankings, results)",
		Keys:   backend.ObjectKeys(root),
		Index:  -1,
	}
}

func decodeRecord(i int, v gjson.Result) (contracts.ScoreRecord, error) {
	fail := func(format string, args ...interface{}) (contracts.ScoreRecord, error) {
		return contracts.ScoreRecord{}, &backend.SchemaError{Op: opRankings, Reason: fmt.Sprintf(format, args...), Index: i}
	}

	if !v.IsObject() {
		return fail("record is %s, not an object", strings.ToLower(v.Type.String()))
	}

	id := v.Get("id")
	if id.Type != gjson.String && id.Type != gjson.Number {
		return fail("missing id")
	}
	if strings.TrimSpace(id.String()) == "" {
		return fail("empty id")
	}

	nickname := v.Get("nickname")
	if nickname.Type != gjson.String || nickname.String() == "" {
		return fail("missing nickname")
	}

	score := v.Get("score")
	if score.Type != gjson.Number {
		return fail("missing score")
	}
	value := score.Float()
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fail("score %s is not a finite non-negative number", score.Raw)
	}

	rec := contracts.ScoreRecord{
		ID:        id.String(),
		Nickname:  nickname.String(),
		Score:     value,
		ModelID:   firstString(v, "model_id", "modelId"),
		CreatedAt: firstString(v, "created_at", "createdAt"),
	}

	if stats := v.Get("statistics"); stats.IsObject() {
		rec.Statistics = &contracts.RecordStatistics{
			TotalFrames:  int(stats.Get("total_frames").Int()),
			PlayDuration: stats.Get("play_duration").Float(),
		}
	}

	return rec, nil
}

func firstString(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		if r := v.Get(k); r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
