package storage

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

var (
	// InitialWait is the wait before the first retried write. Public for tests.
	InitialWait = 200 * time.Millisecond
	// RetryExponentialFactor defines the factor by which the retry wait time increases.
	RetryExponentialFactor = 2
)

const maxRetryInterval = 10 * time.Second

// retry calls fn up to attempts times, waiting on clk with exponentially
// increasing waits between calls. It returns the last error, or ctx.Err()
// if ctx is cancelled while waiting.
func retry(ctx context.Context, clk clock.Clock, attempts int, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}

	nextWait := InitialWait
	for attempt := 1; attempt < attempts; attempt++ {
		timer := clk.Timer(nextWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		nextWait = getNextWait(nextWait)
	}
	return err
}

func getNextWait(lastWait time.Duration) time.Duration {
	nextWait := lastWait * time.Duration(RetryExponentialFactor)
	if nextWait > maxRetryInterval {
		return maxRetryInterval
	}
	return nextWait
}
