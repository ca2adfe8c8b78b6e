package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	c := New()

	if c.retries != 5 {
		t.Errorf("expected 5 retries, got %d", c.retries)
	}
	if c.baseDelay != 2*time.Second {
		t.Errorf("expected 2s base delay, got %v", c.baseDelay)
	}
	if c.client.Timeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %v", c.client.Timeout)
	}
	if c.strategy == nil || c.parser == nil {
		t.Error("expected default strategy and parser to be set")
	}
}

func TestDefaultRetryStrategy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   RetryStrategy
	}{
		{"rate_limited", http.StatusTooManyRequests, SmartRetry},
		{"service_unavailable", http.StatusServiceUnavailable, SmartRetry},
		{"internal_error", http.StatusInternalServerError, ConservativeRetry},
		{"bad_gateway", http.StatusBadGateway, ConservativeRetry},
		{"gateway_timeout", http.StatusGatewayTimeout, ConservativeRetry},
		{"not_found", http.StatusNotFound, NoRetry},
		{"unauthorized", http.StatusUnauthorized, NoRetry},
		{"bad_request", http.StatusBadRequest, NoRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryStrategy(tt.status); got != tt.want {
				t.Errorf("DefaultRetryStrategy(%d) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after retry, got %d", resp.StatusCode)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestDoNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(3), WithBaseDelay(time.Millisecond))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestDoHonorsContextDuringDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(WithMaxRetries(2))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)

	start := time.Now()
	_, err := c.Do(req)
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("delay ignored context cancellation, took %v", elapsed)
	}
}

func TestDoSetsUserAgent(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithUserAgent("tamada/1.0 (test)"))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if seen != "tamada/1.0 (test)" {
		t.Errorf("expected custom user agent, got %q", seen)
	}
}

func TestDelayForSmartRetryPrefersHeader(t *testing.T) {
	c := New(WithBaseDelay(time.Second))

	got := c.delayFor(SmartRetry, 0, RateLimitInfo{RetryAfter: 7 * time.Second})
	if got != 7*time.Second {
		t.Errorf("expected Retry-After to win, got %v", got)
	}

	// Without header info, exponential backoff with jitter.
	got = c.delayFor(SmartRetry, 1, RateLimitInfo{})
	if got < 2*time.Second || got > 3*time.Second {
		t.Errorf("expected backoff near 2.2s, got %v", got)
	}
}

func TestDelayForConservativeCapsAttempts(t *testing.T) {
	c := New()

	if got := c.delayFor(ConservativeRetry, 0, RateLimitInfo{}); got != 2*time.Second {
		t.Errorf("attempt 0: expected 2s, got %v", got)
	}
	if got := c.delayFor(ConservativeRetry, 1, RateLimitInfo{}); got != 3*time.Second {
		t.Errorf("attempt 1: expected 3s, got %v", got)
	}
	if got := c.delayFor(ConservativeRetry, 2, RateLimitInfo{}); got != 0 {
		t.Errorf("attempt 2: expected no further retries, got %v", got)
	}
}
