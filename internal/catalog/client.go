// Package catalog is a client for the remote Book API that stores the
// catalog and its rating counts.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bookshelfapp/bookshelf-server/internal/metrics"
	"github.com/bookshelfapp/bookshelf-server/internal/ratelimit"
)

const (
	defaultRPS     = 10.0
	defaultBurst   = 20
	defaultTimeout = 10 * time.Second

	// limiterKey is the single outbound bucket; the Book API is one host.
	limiterKey = "book-api"

	// maxErrorBody bounds how much of an error response is logged.
	maxErrorBody = 512
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RPS       float64
	Burst     int
	UserAgent string
}

// Client is a rate-limited Book API client. Reads are bounded by the
// configured timeout; rating writes are not.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	baseURL   string
	userAgent string
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
}

// New creates a new Book API client.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "bookshelf-server/1.0"
	}
	return &Client{
		http:      &http.Client{},
		timeout:   opts.Timeout,
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		limiter:   ratelimit.New(opts.RPS, opts.Burst),
		logger:    logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// BaseURL returns the configured Book API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest executes a request under the client timeout.
func (c *Client) doRequest(ctx context.Context, op, method, path string, query url.Values, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.send(ctx, op, method, path, query, body)
}

// send executes an HTTP request with rate limiting and maps the
// response status to sentinel errors. It adds no deadline of its own.
func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, body []byte) (respBody []byte, err error) {
	started := time.Now()
	defer func() { metrics.ObserveCatalog(op, started, err) }()

	// Wait for rate limit
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("book api request",
		"method", method,
		"path", path,
		"request_id", requestID,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	c.logger.Debug("book api error response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"body", truncate(respBody, maxErrorBody),
	)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusConflict:
		return nil, ErrAlreadyExists
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
