// Package retry provides the shared attempt/backoff primitive used by
// payout resubmission (minute-scale, persisted between scheduler ticks)
// and webhook delivery (second-scale, synchronous).
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted wraps the last attempt error once MaxAttempts is reached.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes a bounded exponential backoff schedule.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Factor <= 1 {
		p.Factor = 2
	}
	return p
}

// Delay returns the backoff before/after the given attempt number
// (1-based): BaseDelay x Factor^attempt.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt)))
}

// Exhausted reports whether the given completed attempt count has used
// up the schedule.
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.withDefaults().MaxAttempts
}

// Do runs fn up to MaxAttempts times, sleeping Delay(attempt) between
// failures. The sleep is cancellation-aware; ctx errors surface
// immediately. A terminal outcome is distinguishable from a retryable
// one: exhaustion returns an error matching ErrExhausted that wraps the
// last attempt error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	p = p.withDefaults()

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = fn(ctx, attempt)
		if last == nil {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, last)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
