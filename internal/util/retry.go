// Package util provides shared utility functions for glhost.
package util

import (
	"context"
	"errors"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
)

// FSRetryOptions returns retry options for filesystem mutations that can race
// with another process briefly holding a directory (rename/remove during promotion).
// Uses exponential backoff (50ms, 100ms, 200ms, ...) capped at 500ms.
func FSRetryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(5),
		retry.Delay(50 * time.Millisecond),
		retry.MaxDelay(500 * time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsTransientFSError),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	}
}

// Retry executes fn with FSRetryOptions extended by opts; later options win.
// Returns the last error if all attempts fail.
func Retry(ctx context.Context, fn func() error, opts ...retry.Option) error {
	return retry.Do(fn, append(FSRetryOptions(ctx), opts...)...)
}

// Common retry predicates

// IsTransientFSError returns true for errors a concurrent reader or a slow
// network filesystem can cause while a directory is being replaced.
func IsTransientFSError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ENOTEMPTY) ||
		errors.Is(err, syscall.EEXIST) ||
		errors.Is(err, syscall.EAGAIN)
}
