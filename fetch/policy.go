package fetch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// isRateLimited reports whether the provided error looks like an upstream
// rate limit rejection.
func isRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate") || strings.Contains(msg, "limit") ||
		strings.Contains(msg, "too many requests")
}

// shouldFallback reports whether the alternate source should be attempted
// after a failed fetch. The alternate is tried when the primary is rate
// limited, and once eagerly when the very first attempt fails for any reason.
func shouldFallback(attempt int, err error) bool {
	return attempt == 0 || isRateLimited(err)
}

// sleepContext pauses for the provided duration unless the context is
// cancelled first.
func sleepContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
