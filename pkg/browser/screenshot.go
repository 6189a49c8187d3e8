package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/proctor/pkg/logging"
)

// captureBackoff is the pause between failed screenshot attempts.
var captureBackoff = 2 * time.Second

// CaptureWithRetry captures a screenshot, retrying transient failures.
// Pages mid-navigation commonly reject the first attempt.
func CaptureWithRetry(ctx context.Context, page Page, log *logging.Logger, attempts int) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		png, err := page.Screenshot()
		if err == nil {
			return png, nil
		}
		lastErr = err
		log.Errorf("attempt %d: error capturing screenshot: %v", attempt, err)
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(captureBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("failed to capture screenshot after %d attempts: %w", attempts, lastErr)
}
