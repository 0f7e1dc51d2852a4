package kvstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/arcade/pkg/config"
	"github.com/wonny/arcade/pkg/redis"
)

// exerciseStore runs the behaviour every Store must share
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyGameData)
	require.NoError(t, err)
	assert.False(t, ok, "missing key must report ok=false")

	require.NoError(t, s.Set(ctx, KeyGameData, `{"score":1}`))
	require.NoError(t, s.Set(ctx, KeyGameCompleted, "true"))

	v, ok, err := s.Get(ctx, KeyGameData)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"score":1}`, v)

	require.NoError(t, s.Set(ctx, KeyGameData, ""))
	v, ok, err = s.Get(ctx, KeyGameData)
	require.NoError(t, err)
	assert.True(t, ok, "empty value is still present")
	assert.Equal(t, "", v)

	require.NoError(t, s.Delete(ctx, KeyGameData, KeyGameCompleted, KeyReplayMode))
	for _, k := range []string{KeyGameData, KeyGameCompleted} {
		_, ok, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}

	require.NoError(t, s.Delete(ctx))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSnapshot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	snap, err := Snapshot(ctx, m)
	require.NoError(t, err)
	assert.Empty(t, snap)

	require.NoError(t, m.Set(ctx, KeyGameCompleted, "true"))
	require.NoError(t, m.Set(ctx, KeyGameTimestamp, "42"))
	require.NoError(t, m.Set(ctx, "unrelated", "x"))

	snap, err = Snapshot(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyGameCompleted: "true", KeyGameTimestamp: "42"}, snap)

	require.NoError(t, m.Delete(ctx, KeyGameCompleted))
	snap, err = Snapshot(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyGameTimestamp: "42"}, snap)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{"default", "", false},
		{"memory", "memory", false},
		{"redis without client", "redis", true},
		{"unknown", "etcd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Store: config.StoreConfig{Backend: tt.backend}}

			disabled, err := redis.New(cfg)
			require.NoError(t, err)

			s, err := Open(cfg, disabled)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &Memory{}, s)
		})
	}
}

func TestRedis_Key(t *testing.T) {
	assert.Equal(t, "arcade:store:pyxelGameData", NewRedis(nil, "arcade").key(KeyGameData))
	assert.Equal(t, "store:pyxelGameData", NewRedis(nil, "").key(KeyGameData))
}

func TestRedis_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("REDIS_HOST not set")
	}

	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	cfg := &config.Config{Redis: config.RedisConfig{
		Host:    os.Getenv("REDIS_HOST"),
		Port:    port,
		Enabled: true,
	}}

	client, err := redis.New(cfg)
	require.NoError(t, err)
	defer client.Close()

	s := NewRedis(client, "arcade-test")
	defer s.Delete(context.Background(), AllKeys()...)

	exerciseStore(t, s)
}

func TestAllKeys(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"pyxelGameCompleted", "pyxelGameData", "pyxelGameTimestamp", "pyxelReplayData", "pyxelReplayMode",
	}, AllKeys())
}
