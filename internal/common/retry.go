package common

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls retry behaviour for transient store errors such as
// badger write conflicts or SQLITE_BUSY.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig is used when the store section of the config is empty.
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 5,
	BaseDelay:  10 * time.Millisecond,
	MaxDelay:   250 * time.Millisecond,
}

// NewRetryConfig builds a RetryConfig from the [store] config section.
func NewRetryConfig(config StoreConfig) RetryConfig {
	cfg := RetryConfig{
		MaxRetries: config.MaxRetries,
		BaseDelay:  ParseDuration(config.BaseDelay, DefaultRetryConfig.BaseDelay),
		MaxDelay:   ParseDuration(config.MaxDelay, DefaultRetryConfig.MaxDelay),
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig.BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return cfg
}

// Retry runs fn until it succeeds, returns a non-transient error, or the retry
// budget is spent. The last error is returned unchanged so callers can inspect it.
// A context that ends while waiting between attempts returns ctx.Err().
func Retry(ctx context.Context, cfg RetryConfig, isTransient func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isTransient(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(backoffDelay(cfg, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// backoffDelay computes baseDelay * 2^attempt (capped) plus jitter in [0, baseDelay).
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay << uint(attempt)
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}
	if cfg.BaseDelay <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(cfg.BaseDelay)))
}
