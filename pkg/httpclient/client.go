// Package httpclient provides a retrying HTTP client shared by every
// remote integration: LLM providers, Wikipedia, Unsplash and SerpAPI.
// Retry behavior is driven by the response status code and, when the
// provider exposes them, rate-limit headers.
package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// RetryStrategy selects how a failed request is retried.
type RetryStrategy int

const (
	// NoRetry fails immediately.
	NoRetry RetryStrategy = iota
	// ConservativeRetry retries twice with short fixed delays. Used for
	// transient server errors.
	ConservativeRetry
	// SmartRetry honors rate-limit headers and falls back to exponential
	// backoff with jitter. Used for 429/503.
	SmartRetry
)

// RateLimitInfo carries whatever rate-limit state a provider reported.
type RateLimitInfo struct {
	RetryAfter            time.Duration
	ResetTime             int64
	RequestsRemaining     int
	InputTokensRemaining  int
	OutputTokensRemaining int
	TokensRemaining       int
}

// HeaderParser extracts rate-limit info from response headers.
type HeaderParser func(http.Header) RateLimitInfo

// StrategyFunc maps a status code to a retry strategy.
type StrategyFunc func(statusCode int) RetryStrategy

// Client wraps http.Client with retries. The zero value is not usable;
// construct with New.
type Client struct {
	client    *http.Client
	retries   int
	baseDelay time.Duration
	userAgent string
	parser    HeaderParser
	strategy  StrategyFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the underlying client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithMaxRetries sets the retry budget.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithBaseDelay sets the backoff base delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithUserAgent sets a User-Agent header on every request that does not
// already carry one. Wikipedia rejects requests without it.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHeaderParser installs a provider-specific rate-limit header parser.
func WithHeaderParser(p HeaderParser) Option {
	return func(c *Client) { c.parser = p }
}

// WithRetryStrategy replaces the status-code to strategy mapping.
func WithRetryStrategy(f StrategyFunc) Option {
	return func(c *Client) { c.strategy = f }
}

// New builds a Client. Defaults: 60s timeout, 5 retries, 2s base delay,
// DefaultRetryStrategy, Retry-After header parsing.
func New(opts ...Option) *Client {
	c := &Client{
		client:    &http.Client{Timeout: 60 * time.Second},
		retries:   5,
		baseDelay: 2 * time.Second,
		parser:    ParseRetryAfter,
		strategy:  DefaultRetryStrategy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultRetryStrategy retries rate limits smartly and server errors
// conservatively.
func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Do executes the request, retrying per the configured strategy. Delays
// respect the request context, so callers with deadlines are never held
// past them.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, strategy, info, err := c.attempt(req)
		if err == nil || strategy == NoRetry {
			return resp, err
		}

		delay := c.delayFor(strategy, attempt, info)
		if delay <= 0 || attempt == c.retries {
			return resp, &ExhaustedError{
				StatusCode: statusOf(resp),
				Attempts:   attempt + 1,
				RetryAfter: c.delayFor(strategy, attempt+1, info),
				Err:        err,
			}
		}

		drain(resp)
		slog.Debug("retrying request",
			"url", req.URL.Redacted(),
			"status", statusOf(resp),
			"attempt", attempt+1,
			"delay", delay)

		if err := sleep(req.Context(), delay); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedError{
		Attempts: c.retries + 1,
		Err:      fmt.Errorf("max retries exceeded"),
	}
}

func (c *Client) attempt(req *http.Request) (*http.Response, RetryStrategy, RateLimitInfo, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NoRetry, RateLimitInfo{}, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, NoRetry, RateLimitInfo{}, nil
	}

	var info RateLimitInfo
	if c.parser != nil {
		info = c.parser(resp.Header)
	}
	return resp, c.strategy(resp.StatusCode), info, fmt.Errorf("HTTP %d", resp.StatusCode)
}

func (c *Client) delayFor(strategy RetryStrategy, attempt int, info RateLimitInfo) time.Duration {
	switch strategy {
	case SmartRetry:
		if info.RetryAfter > 0 {
			return info.RetryAfter
		}
		if info.ResetTime > 0 {
			if d := time.Until(time.Unix(info.ResetTime, 0)); d > 0 {
				return d
			}
		}
		exp := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		return exp + time.Duration(float64(exp)*0.1)
	case ConservativeRetry:
		if attempt >= 2 {
			return 0
		}
		return time.Duration(2+attempt) * time.Second
	default:
		return 0
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// drain discards a response that will not be returned so its connection
// can be reused.
func drain(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
