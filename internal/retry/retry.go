// Package retry runs an operation up to a fixed number of attempts with a
// linearly increasing delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy configures retries for one logical operation.
type Policy struct {
	// MaxAttempts counts the first call. Values below 1 mean 1.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; the n-th wait is n*BaseDelay.
	BaseDelay time.Duration
	// OnRetry, if set, is called before every wait.
	OnRetry func(err error, wait time.Duration)
}

// DefaultPolicy is three attempts waiting 1s then 2s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Retryable is implemented by errors that know whether repeating the call can help.
type Retryable interface {
	Retryable() bool
}

// Permanent marks err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsRetryable reports whether err is worth another attempt. An error's own
// Retryable answer wins; otherwise context errors are final and anything else
// is retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Do calls op until it succeeds, returns a non-retryable error, the policy
// runs out of attempts, or ctx is done.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(NewLinearBackOff(p.BaseDelay)),
		backoff.WithMaxTries(uint(attempts)),
		// Attempts alone bound the loop; backoff's default elapsed cap
		// would end it early for long delays.
		backoff.WithMaxElapsedTime(0),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(p.OnRetry))
	}

	v, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err != nil && !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return v, err
}

// LinearBackOff waits base, 2*base, 3*base, ...
type LinearBackOff struct {
	base    time.Duration
	attempt int
}

func NewLinearBackOff(base time.Duration) *LinearBackOff {
	return &LinearBackOff{base: base}
}

func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.base * time.Duration(b.attempt)
}

func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
