package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// Policy is a bounded exponential backoff with jitter.
type Policy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	Jitter      float64 // randomization factor, 0..1
}

// DefaultPolicy matches the fetch defaults in config.
var DefaultPolicy = Policy{
	MaxAttempts: 4,
	InitialWait: 2 * time.Second,
	MaxWait:     60 * time.Second,
	Multiplier:  2,
	Jitter:      0.2,
}

// BackOff returns a fresh exponential schedule for this policy.
func (p Policy) BackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialWait
	bo.MaxInterval = p.MaxWait
	bo.Multiplier = p.Multiplier
	if bo.Multiplier < 1 {
		bo.Multiplier = 2
	}
	bo.RandomizationFactor = p.Jitter
	bo.Reset()
	return bo
}

func (p Policy) attempts() uint {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return uint(p.MaxAttempts)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. fn receives the zero-based attempt number, so callers
// can rotate state such as client identities between attempts.
// It returns the number of calls made.
func Do[T any](ctx context.Context, p Policy, fn func(attempt int) (T, error)) (T, int, error) {
	calls := 0
	operation := func() (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, backoff.Permanent(err)
		}
		v, err := fn(calls)
		calls++
		if err == nil {
			return v, nil
		}
		if !domain.Retryable(err) {
			return zero, backoff.Permanent(err)
		}
		if hint := p.retryAfter(err); hint > 0 {
			// Keep the domain error visible to errors.Is after the last attempt.
			return zero, fmt.Errorf("%w: %w", err, backoff.RetryAfter(hint))
		}
		return zero, err
	}

	v, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.BackOff()),
		backoff.WithMaxTries(p.attempts()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.Debug("retrying", slog.Int("attempt", calls), slog.Duration("wait", wait), slog.Any("error", err))
		}),
	)
	return v, calls, err
}

// retryAfter returns the server's wait hint in whole seconds, capped by MaxWait.
func (p Policy) retryAfter(err error) int {
	var rle *domain.RateLimitError
	if !errors.As(err, &rle) || rle.RetryAfter <= 0 {
		return 0
	}
	hint := rle.RetryAfter
	if p.MaxWait > 0 {
		hint = min(hint, int(p.MaxWait/time.Second))
	}
	return hint
}
