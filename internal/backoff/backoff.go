// Package backoff implements the bounded exponential-backoff retry used for
// connection establishment at startup.
package backoff

import (
	"context"
	"fmt"
	"time"
)

// Delay returns the pause before the given retry attempt (1-based): the base
// delay doubled for each attempt after the first.
func Delay(attempt int, base time.Duration) time.Duration {
	if attempt <= 1 {
		return base
	}
	return base << (attempt - 1)
}

// Retry runs op up to maxAttempts times, sleeping Delay(attempt) between
// failures. It returns the last error once attempts are exhausted, or the
// context error if the context ends first.
func Retry(ctx context.Context, maxAttempts int, base time.Duration, op func(attempt int) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(Delay(attempt, base)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}
