package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/wonny/arcade/internal/contracts"
	"github.com/wonny/arcade/internal/kvstore"
)

// Completion is a parsed result handed from the runtime to the host
type Completion struct {
	Timestamp string
	Payload   contracts.GameResultPayload
	// Raw is the payload exactly as the runtime wrote it
	Raw []byte
}

// ParseCompletion decodes the payload of a completion signal
func ParseCompletion(sig contracts.CompletionSignal) (Completion, error) {
	raw := []byte(sig.Payload)

	if !gjson.ValidBytes(raw) {
		return Completion{}, errors.New("payload is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Completion{}, errors.New("payload is not a JSON object")
	}
	if root.Get("score").Type != gjson.Number {
		return Completion{}, errors.New("payload has no numeric score")
	}

	var payload contracts.GameResultPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Completion{}, fmt.Errorf("decode payload: %w", err)
	}

	return Completion{
		Timestamp: sig.Timestamp,
		Payload:   payload,
		Raw:       raw,
	}, nil
}

// ReadSignal reads the completion triple from the store
func ReadSignal(ctx context.Context, store kvstore.Store) (contracts.CompletionSignal, error) {
	var sig contracts.CompletionSignal

	completed, _, err := store.Get(ctx, kvstore.KeyGameCompleted)
	if err != nil {
		return sig, err
	}
	data, _, err := store.Get(ctx, kvstore.KeyGameData)
	if err != nil {
		return sig, err
	}
	ts, _, err := store.Get(ctx, kvstore.KeyGameTimestamp)
	if err != nil {
		return sig, err
	}

	sig.Completed = completed == "true"
	sig.Payload = data
	sig.Timestamp = ts
	return sig, nil
}

// WriteCompletion plays the runtime's side of the protocol: data first,
// then the flag, then the timestamp that makes the run visible.
// Payloads the bridge would discard are refused.
func WriteCompletion(ctx context.Context, store kvstore.Store, payload, timestamp string) error {
	if timestamp == "" {
		return errors.New("completion timestamp is empty")
	}
	if _, err := ParseCompletion(contracts.CompletionSignal{Completed: true, Payload: payload, Timestamp: timestamp}); err != nil {
		return fmt.Errorf("invalid completion: %w", err)
	}

	steps := []struct{ key, value string }{
		{kvstore.KeyGameData, payload},
		{kvstore.KeyGameCompleted, "true"},
		{kvstore.KeyGameTimestamp, timestamp},
	}
	for _, s := range steps {
		if err := store.Set(ctx, s.key, s.value); err != nil {
			return fmt.Errorf("write %s: %w", s.key, err)
		}
	}
	return nil
}
