// Package fetch provides the URL-fetch collaborator used by remote
// data sources and hash-keyed endpoint checks. Retries on 5xx with
// exponential backoff are handled here so callers see a single
// fetch-or-fail operation.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/mailscope/mailscope/types"
)

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Client is the concrete Fetcher backed by retryablehttp.
type Client struct {
	http *retryablehttp.Client
}

// Config tunes the HTTP client. Zero values select the defaults.
type Config struct {
	Timeout    time.Duration // per-attempt timeout, default 10s
	MaxRetries int           // retry attempts on 5xx/transport errors, default 3
	Logger     *logrus.Logger
}

// New creates a fetch client. Retry logging goes to the given logrus
// logger at debug level.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.Logger = nil
	if cfg.Logger != nil {
		rc.Logger = retryLogger{cfg.Logger}
	}

	return &Client{http: rc}
}

// Fetch GETs the URL and returns the response body. Transport
// failures, exhausted retries and status >= 400 all surface as a
// *types.ConnectionError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.ConnectionError{Op: "build request for " + url, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.ConnectionError{Op: "fetch " + url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, &types.ConnectionError{
			Op: fmt.Sprintf("fetch %s: unexpected status %d", url, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ConnectionError{Op: "read body of " + url, Err: err}
	}
	return body, nil
}

// retryLogger adapts logrus to the retryablehttp leveled logger.
type retryLogger struct {
	log *logrus.Logger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.log.WithField("kv", kv).Error(msg) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.log.WithField("kv", kv).Warn(msg) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.log.WithField("kv", kv).Debug(msg) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.log.WithField("kv", kv).Debug(msg) }
