package agents

import (
	"context"
	"strings"
	"time"

	"github.com/learnweave/backend/internal/platform/httpx"
	"github.com/learnweave/backend/internal/platform/logger"
)

// RetryConfig controls exponential backoff for one retried operation.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig is the small in-agent budget that absorbs transient
// runtime failures transparently to the caller.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 1, InitialDelay: 2 * time.Second, BackoffFactor: 2}
}

// StageRetryConfig is the per-stage budget applied by the course pipeline to
// every remote agent call.
func StageRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: 5 * time.Second, BackoffFactor: 2}
}

// Operation is a fallible unit of work subject to retry.
type Operation func(ctx context.Context) error

// IsRetryable reports whether err looks like a rate limit or timeout. Model
// runtimes surface these as text markers more reliably than as typed errors,
// so the message is inspected alongside httpx's structural checks.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if httpx.IsRetryableError(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "resource exhausted") {
		return true
	}
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}

// Do invokes op, retrying retryable failures with exponential backoff until
// cfg.MaxRetries extra attempts are spent. The last failure is returned
// unchanged; non-retryable failures propagate after the first attempt.
func Do(ctx context.Context, cfg RetryConfig, log *logger.Logger, op Operation) error {
	delay := cfg.InitialDelay
	factor := cfg.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= cfg.MaxRetries || !IsRetryable(err) {
			return err
		}

		if log != nil {
			log.Warn("retryable failure, backing off",
				"attempt", attempt+1,
				"max_retries", cfg.MaxRetries,
				"delay", delay.String(),
				"error", err.Error(),
			)
		}
		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
		delay = time.Duration(float64(delay) * factor)
	}
	return lastErr
}

// Wrap returns op decorated with the same retry loop Do runs. The two call
// shapes share one implementation.
func Wrap(cfg RetryConfig, log *logger.Logger, op Operation) Operation {
	return func(ctx context.Context) error {
		return Do(ctx, cfg, log, op)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
