package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// jitter spreads each delay over 0.8x to 1.2x of the nominal interval.
const jitter = 0.2

// Policy retries an operation with jittered exponential backoff.
//
// Attempts <= 0 retries until the context is done. Retryable decides whether
// an error is worth another attempt; nil treats every error as transient.
type Policy struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Retryable   func(error) bool
	OnRetry     func(attempt int, delay time.Duration, err error)
}

func Default(attempts int) Policy {
	return Policy{
		Attempts:    attempts,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// Do runs fn until it succeeds, fails permanently, runs out of attempts or
// ctx is done. The last error from fn is returned, or ctx.Err() when the
// context ended the wait.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
	}
	return backoff.RetryNotify(op, p.backOff(ctx), notify)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	base := p.BaseBackoff
	if base <= 0 {
		base = 1 * time.Second
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.MaxInterval = max(p.MaxBackoff, base)
	exp.Multiplier = 2
	exp.RandomizationFactor = jitter
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = exp
	if p.Attempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.Attempts-1))
	}
	return backoff.WithContext(b, ctx)
}
