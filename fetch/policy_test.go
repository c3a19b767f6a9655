package fetch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		limited bool
	}{
		{
			"too many requests status",
			&APIError{Source: "vndirect", StatusCode: http.StatusTooManyRequests},
			true,
		},
		{
			"rate text",
			errors.New("upstream rate exceeded"),
			true,
		},
		{
			"limit text",
			errors.New("request limit reached"),
			true,
		},
		{
			"wrapped status",
			errors.Join(errors.New("fetching quotes"), &APIError{StatusCode: http.StatusTooManyRequests}),
			true,
		},
		{
			"unrelated error",
			errors.New("connection refused"),
			false,
		},
	}

	for _, test := range tests {
		if got := isRateLimited(test.err); got != test.limited {
			t.Errorf("%s: mismatched result, got %v, expected %v", test.name, got, test.limited)
		}
	}
}

func TestShouldFallback(t *testing.T) {
	// Ensure the first attempt falls back on any error.
	assert.True(t, shouldFallback(0, errors.New("connection refused")))

	// Ensure later attempts only fall back when rate limited.
	assert.Equal(t, shouldFallback(1, errors.New("connection refused")), false)
	assert.True(t, shouldFallback(2, &APIError{StatusCode: http.StatusTooManyRequests}))
}

func TestSleepContext(t *testing.T) {
	// Ensure the sleep completes when the context stays live.
	err := sleepContext(context.Background(), time.Millisecond)
	assert.NoError(t, err)

	// Ensure cancellation interrupts the sleep.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = sleepContext(ctx, time.Minute)
	assert.Error(t, err)
}
