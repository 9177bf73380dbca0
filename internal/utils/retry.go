package utils

import (
	"context"
	"fmt"
	"time"

	"monitoring-service/internal/logging"
)

// Retry runs fn up to maxAttempts times, multiplying the delay by factor
// after each failure. The delay never decreases (factor is clamped to 1.0).
func Retry(ctx context.Context, logger *logging.Logger, maxAttempts int, delay time.Duration, factor float64, fn func() error) error {
	if factor < 1.0 {
		factor = 1.0
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			logger.Errorf("Attempt %d/%d failed: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
				delay = time.Duration(float64(delay) * factor)
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
