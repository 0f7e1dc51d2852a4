package replays

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/arcade/internal/backend"
	"github.com/wonny/arcade/internal/kvstore"
	"github.com/wonny/arcade/pkg/config"
	"github.com/wonny/arcade/pkg/httputil"
	"github.com/wonny/arcade/pkg/logger"
)

const replayContent = `{"version":"1.2","modelId":"master","frames":[{"frame_number":0},{"frame_number":1}],"enemy_events":[{"event_type":"enemy_spawn","frame":0,"x":1,"y":2}],"score":300}`

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	cfg := &config.Config{Env: "development", API: config.APIConfig{Timeout: 2 * time.Second}}
	return NewClient(backend.NewClient(httputil.New(cfg, logger.Nop()), server.URL, logger.Nop()), logger.Nop()), server
}

func TestFetchReplayMeta(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"id":"r 1","session_id":"s","frames_count":1800,"duration_ms":60400,"compression":null,"url":"https://cdn/x.json","expires_in":300}`))
	}))

	meta, err := client.FetchReplayMeta(context.Background(), "r 1")
	require.NoError(t, err)

	assert.Equal(t, "/api/replays/r%201", gotPath)
	assert.Equal(t, "r 1", meta.ID)
	assert.Equal(t, "https://cdn/x.json", meta.URL)
	require.NotNil(t, meta.FramesCount)
	assert.Equal(t, 1800, *meta.FramesCount)
	assert.Nil(t, meta.Compression)
	assert.Equal(t, int64(60), meta.DurationSeconds())
}

func TestFetchReplayMeta_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkAs interface{}
	}{
		{"not found", http.StatusNotFound, `{"detail":"missing"}`, new(*backend.TransportError)},
		{"invalid json", http.StatusOK, `{"id":`, new(*backend.ParseError)},
		{"missing url", http.StatusOK, `{"id":"r1","session_id":"s"}`, new(*backend.SchemaError)},
		{"array body", http.StatusOK, `[]`, new(*backend.SchemaError)},
		{"wrong field type", http.StatusOK, `{"id":"r1","url":"u","frames_count":"many"}`, new(*backend.ParseError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := client.FetchReplayMeta(context.Background(), "r1")
			require.Error(t, err)
			assert.ErrorAs(t, err, tt.checkAs)
		})
	}
}

func TestFetchReplayMeta_EmptyID(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	_, err := client.FetchReplayMeta(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestFetchReplayMeta_Canceled(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchReplayMeta(ctx, "r1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadReplay(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/content/good":
			w.Write([]byte(replayContent))
		case "/content/bad":
			w.Write([]byte(`"just a string"`))
		default:
			http.Error(w, "expired", http.StatusForbidden)
		}
	}))

	replay, err := client.LoadReplay(context.Background(), server.URL+"/content/good")
	require.NoError(t, err)
	assert.Equal(t, "1.2", replay.Summary.Version)
	assert.Equal(t, "master", replay.Summary.ModelID)
	assert.Equal(t, 2, replay.Summary.Frames)
	assert.Equal(t, 1, replay.Summary.EnemyEvents)
	assert.Equal(t, len(replayContent), replay.Summary.Bytes)

	_, err = client.LoadReplay(context.Background(), server.URL+"/content/bad")
	var pe *backend.ParseError
	assert.ErrorAs(t, err, &pe)

	_, err = client.LoadReplay(context.Background(), server.URL+"/content/gone")
	var te *backend.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusForbidden, te.StatusCode)
}

func TestPlay(t *testing.T) {
	var server *httptest.Server
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/blob" {
			w.Write([]byte(replayContent))
			return
		}
		w.Write([]byte(`{"id":"r1","session_id":"s","url":"` + server.URL + `/blob"}`))
	}))

	store := kvstore.NewMemory()
	meta, replay, err := client.Play(context.Background(), store, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", meta.ID)
	assert.Equal(t, 2, replay.Summary.Frames)

	data, ok, err := store.Get(context.Background(), kvstore.KeyReplayData)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, replayContent, data)

	pending, err := ReplayPending(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, pending)
}

// orderedStore records the order of writes
type orderedStore struct {
	*kvstore.Memory
	mu     sync.Mutex
	writes []string
}

func (s *orderedStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.writes = append(s.writes, key)
	s.mu.Unlock()
	return s.Memory.Set(ctx, key, value)
}

func TestRequestReplay_WritesDataBeforeMode(t *testing.T) {
	store := &orderedStore{Memory: kvstore.NewMemory()}

	require.NoError(t, RequestReplay(context.Background(), store, []byte(replayContent)))
	assert.Equal(t, []string{kvstore.KeyReplayData, kvstore.KeyReplayMode}, store.writes)

	mode, _, _ := store.Get(context.Background(), kvstore.KeyReplayMode)
	assert.Equal(t, "true", mode)
}

func TestRequestReplay_RejectsNonObject(t *testing.T) {
	store := kvstore.NewMemory()

	assert.Error(t, RequestReplay(context.Background(), store, []byte(`[1]`)))
	assert.Error(t, RequestReplay(context.Background(), store, []byte(`nope`)))
	assertStoreEmpty(t, store)
}

func TestReplayPendingAndCancel(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()

	pending, err := ReplayPending(ctx, store)
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, RequestReplay(ctx, store, []byte(`{"frames":[]}`)))

	// runtime consumes the flag
	require.NoError(t, store.Delete(ctx, kvstore.KeyReplayMode))
	pending, err = ReplayPending(ctx, store)
	require.NoError(t, err)
	assert.False(t, pending)

	require.NoError(t, RequestReplay(ctx, store, []byte(`{"frames":[]}`)))
	require.NoError(t, CancelReplay(ctx, store))
	assertStoreEmpty(t, store)
}

func assertStoreEmpty(t *testing.T, store kvstore.Store) {
	t.Helper()
	snap, err := kvstore.Snapshot(context.Background(), store)
	require.NoError(t, err)
	assert.Empty(t, snap)
}
