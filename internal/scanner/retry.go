package scanner

import (
	"errors"
	"time"
)

// RetryPolicy decides, per failed attempt, whether to retry and how long
// to wait first. Only transport-level transient failures are retried; a
// received HTTP response (any status code) is a transport success and is
// never retried.
type RetryPolicy struct {
	MaxRetries int           // additional attempts after the first
	BaseDelay  time.Duration // first backoff step
	MaxDelay   time.Duration // backoff cap
}

// NewRetryPolicy returns the default exponential policy: 500ms base,
// doubling per attempt, capped at 10s.
func NewRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// Next reports whether a retry should happen after the given failed
// attempt (1-based) and the backoff delay to apply before it.
func (p RetryPolicy) Next(attempt int, err error) (time.Duration, bool) {
	if attempt > p.MaxRetries {
		return 0, false
	}
	var terr *TransportError
	if !errors.As(err, &terr) || !terr.Transient() {
		return 0, false
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay, true
}
