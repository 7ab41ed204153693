package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Policy describes a bounded retry loop. Backoff maps the 1-based attempt
// number to the delay taken after that attempt fails. Sleep is injectable
// so tests run without real delays.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// FixedBackoff waits the same delay between every attempt.
func FixedBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// LinearBackoff waits attempt*step, so delays grow 1x, 2x, 3x...
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration { return time.Duration(attempt) * step }
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do unwraps the mark and
// returns the original error without consuming further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn up to MaxAttempts times, waiting Backoff(attempt) between
// failures. The last error is returned once attempts are exhausted. The
// context aborts the wait, not a running attempt.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == maxAttempts {
			break
		}
		if p.Backoff != nil {
			if waitErr := p.wait(ctx, p.Backoff(attempt)); waitErr != nil {
				return waitErr
			}
		}
	}
	return err
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryable reports whether an HTTP round trip is worth repeating:
// network timeouts and transport failures, rate limiting, and 5xx
// responses. Other client errors are treated as permanent.
func Retryable(resp *http.Response, err error) bool {
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return true
		}
		if _, ok := err.(*net.OpError); ok {
			return true
		}
		if _, ok := err.(*net.DNSError); ok {
			return true
		}
		return false
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}

	return resp.StatusCode >= 500 && resp.StatusCode < 600
}
