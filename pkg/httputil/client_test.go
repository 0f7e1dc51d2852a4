package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wonny/arcade/pkg/config"
	"github.com/wonny/arcade/pkg/logger"
)

func testClient() *Client {
	cfg := &config.Config{
		Env:      "development",
		LogLevel: "error",
		API:      config.APIConfig{Timeout: 5 * time.Second},
	}
	return New(cfg, logger.Nop())
}

func TestNew(t *testing.T) {
	client := testClient()
	if client.httpClient == nil {
		t.Fatal("Expected http.Client to be initialized")
	}

	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Expected timeout=5s, got %v", client.httpClient.Timeout)
	}

	if client.limiter != nil {
		t.Error("Expected no rate limiter by default")
	}
}

func TestWithRateLimit(t *testing.T) {
	base := testClient()

	if base.WithRateLimit(0) != base {
		t.Error("Expected zero rate to return the same client")
	}

	limited := base.WithRateLimit(10)
	if limited.limiter == nil {
		t.Fatal("Expected limiter to be set")
	}
	if base.limiter != nil {
		t.Error("WithRateLimit must not mutate the receiver")
	}
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected Accept=application/json, got %s", r.Header.Get("Accept"))
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	resp, err := testClient().Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected Content-Type=application/json, got %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"nickname":"Ann"}` {
			t.Errorf("Unexpected body %s", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := testClient().Post(context.Background(), server.URL, "application/json", []byte(`{"nickname":"Ann"}`))
	if err != nil {
		t.Fatalf("POST request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", resp.StatusCode)
	}
}

func TestNoRetryByDefault(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resp, err := testClient().Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("Expected 1 attempt, got %d", got)
	}
}

func TestIsSuccess(t *testing.T) {
	for code, want := range map[int]bool{199: false, 200: true, 204: true, 299: true, 300: false, 404: false} {
		if got := IsSuccess(code); got != want {
			t.Errorf("IsSuccess(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestDo_UnreachableIsNotSent(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := testClient().Post(context.Background(), url, "application/json", []byte(`{}`))
	if err == nil {
		t.Fatal("Expected error for closed server")
	}

	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("Expected *RequestError, got %T", err)
	}
	if re.Sent || WasSent(err) {
		t.Error("Expected Sent=false when the connection was refused")
	}
}

func TestDo_CanceledAfterWriteIsSent(t *testing.T) {
	var received int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.ReadAll(r.Body)
		atomic.AddInt32(&received, 1)
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := testClient().Post(ctx, server.URL, "application/json", []byte(`{"score":1}`))
	if err == nil {
		t.Fatal("Expected error after cancellation")
	}
	if !WasSent(err) {
		t.Errorf("Expected Sent=true once the server had the request, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context error to stay visible, got %v", err)
	}
	if got := atomic.LoadInt32(&received); got != 1 {
		t.Errorf("Expected server to receive 1 request, got %d", got)
	}
}

func TestDo_RateLimitWaitIsNotSent(t *testing.T) {
	var received int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&received, 1)
	}))
	defer server.Close()

	client := testClient().WithRateLimit(0.001)
	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Get(ctx, server.URL); err == nil || WasSent(err) {
		t.Errorf("Expected unsent error while waiting on the limiter, got %v", err)
	}
	if got := atomic.LoadInt32(&received); got != 1 {
		t.Errorf("Expected 1 request to reach the server, got %d", got)
	}
}
