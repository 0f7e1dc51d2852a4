package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wonny/arcade/pkg/config"
	"github.com/wonny/arcade/pkg/httputil"
	"github.com/wonny/arcade/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{Env: "development", API: config.APIConfig{Timeout: 2 * time.Second}}
	return NewClient(httputil.New(cfg, logger.Nop()), baseURL, logger.Nop())
}

func TestURL(t *testing.T) {
	c := newTestClient("http://api.local/")

	assert.Equal(t, "http://api.local/api/gameplay", c.URL("/api/gameplay", nil))
	assert.Equal(t, "http://api.local/api/gameplay/rankings?page=2",
		c.URL("/api/gameplay/rankings", url.Values{"page": {"2"}}))
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/replays/r1", r.URL.Path)
		w.Write([]byte(`{"id":"r1"}`))
	}))
	defer server.Close()

	body, err := newTestClient(server.URL).GetJSON(context.Background(), "replay meta", "/api/replays/r1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r1"}`, string(body))
}

func TestGetJSON_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetJSON(context.Background(), "rankings", "/x", nil)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "backend exploded", te.Body)
	assert.False(t, te.Unreachable())
	assert.Contains(t, te.Error(), "HTTP 500")
}

func TestGetJSON_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := newTestClient(addr).GetJSON(context.Background(), "rankings", "/x", nil)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Unreachable())
	assert.NotNil(t, errors.Unwrap(te))
}

func TestGetJSON_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).GetJSON(ctx, "rankings", "/x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Unreachable())
}

func TestPostJSON_ReturnsStatusForCaller(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"nickname taken"}`))
	}))
	defer server.Close()

	status, body, err := newTestClient(server.URL).PostJSON(context.Background(), "submit", "/api/gameplay", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.JSONEq(t, `{"detail":"nickname taken"}`, string(body))
}

func TestSchemaError_Message(t *testing.T) {
	err := &SchemaError{Op: "rankings", Reason: "no recognized record array", Keys: []string{"foo", "meta"}, Index: -1}
	assert.Equal(t, `rankings: schema error: no recognized record array (top-level keys: "foo", "meta")`, err.Error())

	err = &SchemaError{Op: "rankings", Reason: "missing nickname", Index: 3}
	assert.Equal(t, "rankings: schema error: record 3: missing nickname", err.Error())
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, []string{"data", "meta"}, ObjectKeys(gjson.Parse(`{"data":{},"meta":1}`)))
	assert.Empty(t, ObjectKeys(gjson.Parse(`{}`)))
	assert.Empty(t, ObjectKeys(gjson.Parse(`[1,2]`)))
}

func TestParseError_Unwrap(t *testing.T) {
	inner := errors.New("unexpected end of JSON input")
	err := &ParseError{Source: "store", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "store: parse error: unexpected end of JSON input", err.Error())
}

func TestPostJSON_SentWithoutAnswer(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, _, err := newTestClient(server.URL).PostJSON(ctx, "submit", "/api/gameplay", []byte(`{"score":1}`))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Sent)
	assert.True(t, te.Unanswered())
	assert.False(t, te.Unreachable())
}
