// Package retry implements bounded exponential backoff for transient
// collaborator failures.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy suits local stores; external ledgers usually configure
// a longer tail.
var DefaultPolicy = Policy{
	Attempts:       4,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// Permanent wraps an error to stop the retry loop immediately.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op up to p.Attempts times, doubling the backoff between
// attempts until p.MaxBackoff. It stops early when ctx is cancelled or
// when op returns a Permanent error, and returns the last error seen.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialBackoff
	if delay <= 0 {
		delay = DefaultPolicy.InitialBackoff
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; p.MaxBackoff <= 0 || next <= p.MaxBackoff {
			delay = next
		}
	}
	return lastErr
}
