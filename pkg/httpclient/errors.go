package httpclient

import (
	"fmt"
	"time"
)

// ExhaustedError reports a request that kept failing until its retry
// budget ran out. StatusCode is the last HTTP status observed, zero
// when the failure never reached the server. RetryAfter carries the
// delay the next attempt would have waited, so callers scheduling
// their own retry can honor the server's pacing.
type ExhaustedError struct {
	StatusCode int
	Attempts   int
	RetryAfter time.Duration
	Err        error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("request failed after %d attempts", e.Attempts)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (last status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
