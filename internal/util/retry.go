package util

import (
	"context"
	"errors"
	"fmt"
)

// Retry calls fn up to maxAttempts times, returning nil on the first
// success. Between attempts it checks for context cancellation; a cancelled
// context aborts the loop immediately and the context error is returned, so
// an interrupted retry surfaces as a failure rather than a partial success.
// There is no added backoff: the latency of the failing call itself paces
// the loop.
func Retry(ctx context.Context, maxAttempts int, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(); err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}

// Permanent marks err as non-retryable: Retry stops immediately and returns
// the unwrapped error.
func Permanent(err error) error {
	return permanentError{err: err}
}

type permanentError struct {
	err error
}

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }
