package replays

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/wonny/arcade/internal/kvstore"
)

// RequestReplay asks the runtime to play data. The data key is written
// before the mode flag so the runtime never sees the flag without data.
func RequestReplay(ctx context.Context, store kvstore.Store, data []byte) error {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return errors.New("replay data must be a JSON object")
	}

	if err := store.Set(ctx, kvstore.KeyReplayData, string(data)); err != nil {
		return fmt.Errorf("write replay data: %w", err)
	}
	if err := store.Set(ctx, kvstore.KeyReplayMode, "true"); err != nil {
		return fmt.Errorf("write replay mode: %w", err)
	}
	return nil
}

// ReplayPending reports whether a requested replay has not been picked up yet
func ReplayPending(ctx context.Context, store kvstore.Store) (bool, error) {
	mode, _, err := store.Get(ctx, kvstore.KeyReplayMode)
	if err != nil {
		return false, err
	}
	return mode == "true", nil
}

// CancelReplay withdraws a replay request the runtime has not consumed
func CancelReplay(ctx context.Context, store kvstore.Store) error {
	return store.Delete(ctx, kvstore.KeyReplayMode, kvstore.KeyReplayData)
}
