package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseRetryAfter reads the standard Retry-After header (seconds form).
// This is the default parser; it covers Wikipedia, Unsplash and SerpAPI.
func ParseRetryAfter(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{}
	if v := headers.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			info.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return info
}

// ParseAnthropicHeaders extracts rate-limit info from Anthropic API headers.
func ParseAnthropicHeaders(headers http.Header) RateLimitInfo {
	info := ParseRetryAfter(headers)

	// Reset headers carry RFC3339 timestamps.
	for _, h := range []string{
		"anthropic-ratelimit-requests-reset",
		"anthropic-ratelimit-input-tokens-reset",
		"anthropic-ratelimit-output-tokens-reset",
	} {
		if v := headers.Get(h); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				info.ResetTime = t.Unix()
				break
			}
		}
	}

	info.RequestsRemaining = headerInt(headers, "anthropic-ratelimit-requests-remaining")
	info.InputTokensRemaining = headerInt(headers, "anthropic-ratelimit-input-tokens-remaining")
	info.OutputTokensRemaining = headerInt(headers, "anthropic-ratelimit-output-tokens-remaining")
	return info
}

// ParseOpenAIHeaders extracts rate-limit info from OpenAI-compatible API
// headers. Used by the embedding client.
func ParseOpenAIHeaders(headers http.Header) RateLimitInfo {
	info := ParseRetryAfter(headers)

	for _, h := range []string{"x-ratelimit-reset-tokens", "x-ratelimit-reset-requests"} {
		if v := headers.Get(h); v != "" {
			if reset, err := strconv.ParseInt(v, 10, 64); err == nil {
				info.ResetTime = reset
				break
			}
		}
	}

	info.RequestsRemaining = headerInt(headers, "x-ratelimit-remaining-requests")
	info.TokensRemaining = headerInt(headers, "x-ratelimit-remaining-tokens")
	return info
}

func headerInt(headers http.Header, key string) int {
	v := headers.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
