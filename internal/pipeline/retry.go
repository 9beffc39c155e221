package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/pagewright/internal/oracle"
)

// Backoff returns a duration for attempt n (0-indexed) with jitter. Callers
// are waiting on an HTTP response, so the ceiling is low.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
	if base > 8*time.Second {
		base = 8 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// generate calls the oracle, retrying transient failures.
func (s *Service) generate(ctx context.Context, log *slog.Logger, req oracle.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out string
	var lastErr error
	for attempt := range MaxRetries {
		out, lastErr = s.oracle.Generate(ctx, req)
		if lastErr == nil || !oracle.IsRetryable(lastErr) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable oracle error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(s.backoff(attempt)):
		case <-ctx.Done():
			return "", fmt.Errorf("oracle: %w", ctx.Err())
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("oracle: %w", lastErr)
	}
	return out, nil
}
