// internal/platform/httpclient/httpclient.go

// Package httpclient is the plain HTTP client used for auxiliary lookups
// (exit-IP timezone) that do not need a browser fingerprint. It adds rate
// limiting, retries on transient statuses and JSON decoding on top of net/http.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"proxylens/internal/core/ports"
	"proxylens/internal/platform/clock"
	"proxylens/internal/platform/errors"
	"proxylens/internal/platform/logx"
	"proxylens/internal/platform/rate"
	"proxylens/internal/platform/resilience"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Config holds the client settings.
type Config struct {
	// Timeout per attempt. Default: 10s
	Timeout time.Duration

	// MaxRetries extra attempts on network errors, 429 and 5xx. Default: 0
	MaxRetries int

	// RetryBackoff first backoff, doubled per retry up to MaxRetryBackoff.
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration

	// UserAgent default: "proxylens/1.0"
	UserAgent string

	// Limiter shared across every caller of the same service (optional).
	Limiter *rate.Limiter

	// Clock used for backoff sleeps. Default: real clock
	Clock ports.Clock
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		RetryBackoff:    time.Second,
		MaxRetryBackoff: 10 * time.Second,
		UserAgent:       "proxylens/1.0",
	}
}

// Client is safe for concurrent use.
type Client struct {
	http    *http.Client
	config  Config
	retrier *resilience.Retrier
	logger  logx.Logger
}

// New creates a client. Zero values in config take the defaults.
func New(config Config, logger logx.Logger) *Client {
	def := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = def.RetryBackoff
	}
	if config.MaxRetryBackoff <= 0 {
		config.MaxRetryBackoff = def.MaxRetryBackoff
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if logger == nil {
		logger = logx.NewSilent()
	}
	logger = logger.With("component", "httpclient")

	return &Client{
		http:   &http.Client{Timeout: config.Timeout},
		config: config,
		retrier: resilience.NewRetrier(resilience.Policy{
			MaxAttempts: config.MaxRetries + 1,
			Backoff:     resilience.ExponentialBackoff(config.RetryBackoff, 2, config.MaxRetryBackoff),
			Retryable:   isTransient,
		}, config.Clock, logger),
		logger: logger,
	}
}

// Get performs a GET and returns the body of a 2xx response. Other statuses
// come back as *errors.StatusError.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var body []byte
	err := c.retrier.Do(ctx, "GET "+url, func(ctx context.Context, attempt int) error {
		b, err := c.do(ctx, http.MethodGet, url, headers, attempt)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON performs a GET and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrapf(errors.Join(errors.ErrInvalidResponse, err), "decode %s", url)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, attempt int) ([]byte, error) {
	if c.config.Limiter != nil {
		if err := c.config.Limiter.Wait(ctx); err != nil {
			return nil, resilience.Permanent(errors.Wrap(err, "rate limit wait"))
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, resilience.Permanent(errors.Wrapf(err, "build request %s %s", method, url))
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("http request failed", "url", url, "attempt", attempt, "error", err.Error())
		return nil, errors.Wrap(errors.Join(errors.ErrConnectionFailed, err), method+" "+url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	c.logger.Debug("http response",
		"url", url,
		"status", resp.StatusCode,
		"attempt", attempt,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewStatusError(resp.StatusCode, url, body)
	}
	return body, nil
}

// isTransient: errores de red, 429 y 5xx.
func isTransient(err error) bool {
	if errors.IsRateLimit(err) || errors.IsServerError(err) {
		return true
	}
	return errors.Is(err, errors.ErrConnectionFailed)
}

// String returns a human-readable representation of the client configuration.
func (c *Client) String() string {
	limit := 0.0
	if c.config.Limiter != nil {
		limit = c.config.Limiter.Rate()
	}
	return fmt.Sprintf("HTTPClient{timeout=%s, max_retries=%d, rate_limit=%.2f/s}",
		c.config.Timeout, c.config.MaxRetries, limit)
}
