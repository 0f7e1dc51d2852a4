// Package kvstore is the shared key/value surface between the host and the
// embedded game runtime. Values are strings; a missing key is not an error.
package kvstore

import (
	"context"
	"fmt"

	"github.com/wonny/arcade/pkg/config"
	"github.com/wonny/arcade/pkg/redis"
)

// Keys written by the runtime (completion) and by the host (replay hand-off)
const (
	KeyGameCompleted = "pyxelGameCompleted"
	KeyGameData      = "pyxelGameData"
	KeyGameTimestamp = "pyxelGameTimestamp"
	KeyReplayData    = "pyxelReplayData"
	KeyReplayMode    = "pyxelReplayMode"
)

// Store is the shared key/value store
// ⭐ SSOT: 호스트와 런타임이 공유하는 저장소는 이 인터페이스로만 접근
type Store interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Open builds the store selected by STORE_BACKEND
func Open(cfg *config.Config, rc *redis.Client) (Store, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		if rc == nil || !rc.Enabled() {
			return nil, fmt.Errorf("store backend redis requires an enabled redis client")
		}
		return NewRedis(rc, cfg.Store.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// AllKeys lists every protocol key, in the order they are cleared
func AllKeys() []string {
	return []string{KeyGameCompleted, KeyGameData, KeyGameTimestamp, KeyReplayData, KeyReplayMode}
}

// Snapshot reads every protocol key that is currently set
func Snapshot(ctx context.Context, s Store) (map[string]string, error) {
	out := make(map[string]string)
	for _, key := range AllKeys() {
		value, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		if ok {
			out[key] = value
		}
	}
	return out, nil
}
