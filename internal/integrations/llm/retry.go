package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// RetryConfig holds configuration for in-provider retries. Per the failover
// design, a provider gets one retry with backoff before the service moves
// to the fallback.
type RetryConfig struct {
	MaxRetries  int           // retry attempts per provider (default: 1)
	BaseDelay   time.Duration // initial delay before first retry (default: 2s)
	MaxDelay    time.Duration // delay cap (default: 30s)
	JitterRatio float64       // jitter as fraction of delay, 0.0-1.0 (default: 0.25)
}

// DefaultRetryConfig returns the defaults: 1 retry, 2s base delay, 30s cap,
// 25% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  1,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		JitterRatio: 0.25,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.JitterRatio == 0 {
		c.JitterRatio = d.JitterRatio
	}
	return c
}

// isRetryableError reports whether err is a transient provider error worth
// retrying. It uses typed checks against each SDK's error type rather than
// string matching: HTTP 429 and 5xx are transient, other 4xx are not.
// Timeouts that never produced an API response are also transient.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode == 429 || oaErr.StatusCode >= 500
	}

	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return anthErr.StatusCode == 429 || anthErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// withRetry executes fn, retrying transient errors with exponential backoff.
// Non-retryable errors return immediately.
func withRetry[T any](ctx context.Context, cfg RetryConfig, operation string, fn func() (T, error)) (T, error) {
	var zero T
	cfg = cfg.withDefaults()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if !isRetryableError(err) {
			return zero, err
		}

		if attempt == cfg.MaxRetries {
			return zero, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, err)
		}

		delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt)))
		if cfg.JitterRatio > 0 {
			delay += time.Duration(rand.Float64() * cfg.JitterRatio * float64(delay))
		}
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: context cancelled during retry: %w", operation, ctx.Err())
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%s: retry loop exited unexpectedly", operation)
}
