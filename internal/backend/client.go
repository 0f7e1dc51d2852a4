package backend

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/wonny/arcade/pkg/httputil"
	"github.com/wonny/arcade/pkg/logger"
)

const (
	maxErrorBody   = 4 << 10
	maxSuccessBody = 64 << 20
)

// Client talks to the backend game API. It owns URL building and the
// status-code half of the error taxonomy; callers own response decoding.
// ⭐ SSOT: 백엔드 API 호출은 이 클라이언트를 통해서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a backend client rooted at baseURL
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("backend"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// URL joins path and query onto the API root
func (c *Client) URL(path string, query url.Values) string {
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

// GetJSON performs a GET against path and returns the 2xx body
func (c *Client) GetJSON(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	return c.Fetch(ctx, op, c.URL(path, query))
}

// Fetch performs a GET against an absolute URL (e.g. a presigned content URL)
func (c *Client) Fetch(ctx context.Context, op, rawURL string) ([]byte, error) {
	resp, err := c.httpClient.Get(ctx, rawURL)
	if err != nil {
		return nil, &TransportError{Op: op, Sent: httputil.WasSent(err), Err: err}
	}
	defer resp.Body.Close()

	if !httputil.IsSuccess(resp.StatusCode) {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSuccessBody))
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	// Caller went away while we were reading; drop the result
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return body, nil
}

// PostJSON posts a JSON body. Only transport failures are returned as errors;
// non-2xx responses come back as status + body for the caller to classify.
func (c *Client) PostJSON(ctx context.Context, op, path string, body []byte) (int, []byte, error) {
	resp, err := c.httpClient.Post(ctx, c.URL(path, nil), "application/json", body)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Sent: httputil.WasSent(err), Err: err}
	}
	defer resp.Body.Close()

	limit := int64(maxSuccessBody)
	if !httputil.IsSuccess(resp.StatusCode) {
		limit = maxErrorBody
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	return resp.StatusCode, respBody, nil
}

func readErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
