package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/arcade/pkg/config"
	"github.com/wonny/arcade/pkg/logger"
)

// Client is an HTTP client wrapper with optional rate limiting and logging.
// Requests are single-shot; nothing is retried here.
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	limiter    *rate.Limiter
}

// RequestError is a request that produced no response. Sent reports whether
// the request had been fully written, i.e. the server may have acted on it.
type RequestError struct {
	Method string
	URL    string
	Sent   bool
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// WasSent reports whether err is a RequestError raised after the request was written
func WasSent(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Sent
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Component("http"),
	}
}

// WithRateLimit returns a copy of the client limited to perSecond requests (burst 1).
// perSecond <= 0 returns the client unchanged.
func (c *Client) WithRateLimit(perSecond float64) *Client {
	if perSecond <= 0 {
		return c
	}
	cp := *c
	cp.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	return &cp
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.Do(req)
}

// Post performs a POST request with a raw body
func (c *Client) Post(ctx context.Context, url string, contentType string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return c.Do(req)
}

// Do executes the request with rate limiting and logging.
// Failures without a response are returned as *RequestError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	startTime := time.Now()
	url := req.URL.String()
	method := req.Method

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, &RequestError{Method: method, URL: url, Err: fmt.Errorf("rate limit wait failed: %w", err)}
		}
	}

	var sent atomic.Bool
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				sent.Store(true)
			}
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	c.logger.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
	}).Debug("HTTP request started")

	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"method":   method,
			"url":      url,
			"duration": duration,
			"sent":     sent.Load(),
			"error":    err.Error(),
		}).Warn("HTTP request failed")
		return nil, &RequestError{Method: method, URL: url, Sent: sent.Load(), Err: err}
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

// IsSuccess reports whether the status code is 2xx
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
