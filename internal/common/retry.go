package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrRateLimit indicates that a remote API refused the call for quota reasons.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryOptions configures WithRetry. Zero fields fall back to 3 attempts,
// 100ms initial delay, 30s ceiling and a doubling multiplier.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	return o
}

// RetryableError marks an error as transient or permanent. After is the wait
// the remote side asked for, zero when it gave none.
type RetryableError struct {
	Err       error
	After     time.Duration
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Transient marks err as worth another attempt after the given wait.
func Transient(err error, after time.Duration) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, Retryable: true, After: after}
}

// Permanent marks err as final.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err should trigger another attempt. An explicit
// RetryableError mark wins; otherwise only rate limits and deadlines qualify.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var marked *RetryableError
	if errors.As(err, &marked) {
		return marked.Retryable
	}

	return errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded)
}

// WithRetry runs operation until it succeeds, returns an error IsRetryable
// rejects, or exhausts opts.MaxAttempts. Waits grow exponentially up to
// opts.MaxDelay unless the error carries its own wait.
func WithRetry(ctx context.Context, operation func() error, opts RetryOptions) error {
	opts = opts.withDefaults()
	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, err)
		}

		wait := retryWait(err, delay, opts.MaxDelay)
		slog.Warn("Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"wait", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = min(time.Duration(float64(delay)*opts.Multiplier), opts.MaxDelay)
	}
}

// retryWait picks the pause before the next attempt: the server's wait when
// given, the ceiling for unannotated rate limits, the backoff otherwise.
func retryWait(err error, backoff, ceiling time.Duration) time.Duration {
	var marked *RetryableError
	if errors.As(err, &marked) && marked.After > 0 {
		return min(marked.After, ceiling)
	}
	if errors.Is(err, ErrRateLimit) {
		return ceiling
	}
	return backoff
}
