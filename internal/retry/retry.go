// Package retry provides a context-aware retry engine with exponential
// backoff, shared by the discovery and heuristic-analysis paths.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Config controls retry behaviour.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitDelay is the delay before the first retry; it doubles each attempt.
	InitDelay time.Duration
	// MaxDelay bounds any single delay.
	MaxDelay time.Duration
	// Jitter adds ±25% random noise to each delay.
	Jitter bool
}

// DefaultConfig returns 3 attempts with exponential backoff from 500ms to
// 10s, jitter enabled.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		InitDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// StopError wraps an error to signal that retrying should stop immediately,
// e.g. a non-transient rejection from the remote service.
type StopError struct {
	Err error
}

func (e *StopError) Error() string { return e.Err.Error() }
func (e *StopError) Unwrap() error { return e.Err }

// Stop wraps err so that Do returns it without further retries.
func Stop(err error) error {
	return &StopError{Err: err}
}

// sleeper abstracts waiting so tests can run without real delays.
type sleeper interface {
	sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do executes fn up to cfg.MaxAttempts times, sleeping between failures.
// It returns nil on the first success, the wrapped error immediately when
// fn returns a StopError, ctx.Err() on cancellation, and otherwise the
// last error once attempts are exhausted.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	return doWithSleeper(ctx, cfg, fn, realSleeper{})
}

func doWithSleeper(ctx context.Context, cfg Config, fn func() error, s sleeper) error {
	if cfg.MaxAttempts <= 0 {
		return nil
	}

	var lastErr error
	for attempt := range cfg.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var stop *StopError
		if errors.As(lastErr, &stop) {
			return stop.Err
		}

		if attempt < cfg.MaxAttempts-1 {
			if err := s.sleep(ctx, Delay(cfg, attempt)); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// Delay computes the sleep duration after a given attempt (0-indexed).
func Delay(cfg Config, attempt int) time.Duration {
	delay := cfg.InitDelay * time.Duration(math.Pow(2, float64(attempt)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	if cfg.Jitter && delay > 0 {
		quarter := int64(delay) / 4
		if quarter > 0 {
			j := time.Duration(rand.Int64N(quarter))
			if rand.IntN(2) == 0 {
				delay += j
			} else {
				delay -= j
			}
		}
	}
	return delay
}
