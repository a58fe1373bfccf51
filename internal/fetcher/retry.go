package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/ScrapeGoat-Isnad/internal/types"
)

// maxBackoff caps the wait between two attempts.
const maxBackoff = 30 * time.Second

// Backoff returns the wait before attempt n+1 after n failed attempts:
// base doubled per failure, capped at maxBackoff.
func Backoff(base time.Duration, n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Retry fetches req up to attempts times. It stops early on success, on a
// non-retryable error and on context cancellation. A server-provided
// Retry-After replaces the computed backoff when it is longer.
func Retry(ctx context.Context, f Fetcher, req *types.Request, attempts int, base time.Duration, logger *slog.Logger) (*types.Response, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for n := 0; n < attempts; n++ {
		if n > 0 {
			wait := Backoff(base, n)
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > wait {
				wait = fe.RetryAfter
			}
			logger.Debug("retrying fetch", "url", req.URLString(), "attempt", n+1, "wait", wait, "error", lastErr)

			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		resp, err := f.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *types.FetchError
		if errors.As(err, &fe) && !fe.IsRetryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", types.ErrMaxRetries, attempts, lastErr)
}
