package bridge

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default retry configuration values
const (
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 8 * time.Second
	DefaultJitterRange = 0.4
)

// RetryConfig holds configuration for the transient retry policy.
type RetryConfig struct {
	MaxRetries  int           // retries after the first attempt; total attempts = MaxRetries+1
	BaseDelay   time.Duration // first backoff step
	MaxDelay    time.Duration // backoff cap before jitter
	JitterRange float64       // width of the uniform jitter factor, in [0,1]
}

// DefaultRetryConfig returns a RetryConfig populated from environment
// variables with fallback to default values.
//
// Environment variables:
//   - QUERYFORGE_MAX_RETRIES: max transient retries (default: 3)
//   - QUERYFORGE_RETRY_BASE_DELAY: first backoff step (default: "1s")
//   - QUERYFORGE_RETRY_MAX_DELAY: backoff cap (default: "8s")
//   - QUERYFORGE_RETRY_JITTER: jitter range in [0,1] (default: 0.4)
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  getEnvInt("QUERYFORGE_MAX_RETRIES", DefaultMaxRetries),
		BaseDelay:   getEnvDuration("QUERYFORGE_RETRY_BASE_DELAY", DefaultBaseDelay),
		MaxDelay:    getEnvDuration("QUERYFORGE_RETRY_MAX_DELAY", DefaultMaxDelay),
		JitterRange: getEnvFloat("QUERYFORGE_RETRY_JITTER", DefaultJitterRange),
	}
}

// Retry executes fn under the transient retry policy. Rate-limit and
// server-error failures are reattempted up to cfg.MaxRetries times with
// exponential backoff; a provider Retry-After hint on the failure is honored
// verbatim instead of backoff. All other classifications (including
// auth-expired, which the dispatchers handle themselves) surface
// immediately.
func Retry[T any](ctx context.Context, cfg RetryConfig, op string, fn func() (T, error)) (T, error) {
	var zero T
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) || attempt >= cfg.MaxRetries {
			return zero, err
		}

		delay := retryDelay(cfg, attempt, err)
		slog.Debug("transient failure, retrying",
			"operation", op, "class", ClassOf(err), "delay", delay,
			"attempt", attempt+1, "maxRetries", cfg.MaxRetries)
		if sleepErr := sleepWithContext(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}
}

// retryDelay computes the wait before the next attempt. A provider hint wins
// outright; otherwise exponential backoff capped at MaxDelay and scaled by a
// jitter factor sampled uniformly from [1-JitterRange/2, 1+JitterRange/2].
func retryDelay(cfg RetryConfig, attempt int, err error) time.Duration {
	if hint, ok := retryAfterHint(err); ok {
		return hint
	}

	base := cfg.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}

	// Shifting past ~32 attempts overflows time.Duration into a negative
	// value that would skip both the cap and the sleep. Anything that far
	// out is over the cap regardless.
	var delay time.Duration
	if attempt < 32 {
		delay = base << attempt
	}
	if delay <= 0 || (cfg.MaxDelay > 0 && delay > cfg.MaxDelay) {
		delay = cfg.MaxDelay
		if delay <= 0 {
			delay = DefaultMaxDelay
		}
	}
	if cfg.JitterRange > 0 {
		factor := 1 - cfg.JitterRange/2 + rand.Float64()*cfg.JitterRange
		delay = time.Duration(float64(delay) * factor)
	}
	return delay.Truncate(time.Millisecond)
}

// sleepWithContext waits for the duration or returns early on context cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfterDuration parses Retry-After header values (seconds or HTTP date).
func retryAfterDuration(h http.Header) (time.Duration, bool) {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			secs = 0
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// getEnvInt reads an integer from an environment variable with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration from an environment variable with a default fallback.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvFloat reads a float from an environment variable with a default fallback.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= 0 && parsed <= 1 {
			return parsed
		}
	}
	return defaultVal
}
