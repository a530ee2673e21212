package retry

import (
	"context"
	"errors"
	"time"
)

// Policy is a bounded exponential backoff
type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Initial     time.Duration `mapstructure:"initial"`
	Multiplier  float64       `mapstructure:"multiplier"`
	Max         time.Duration `mapstructure:"max"`
}

// DefaultPolicy retries three times starting at one second, growing 1.5x up to 30s
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Initial:     time.Second,
		Multiplier:  1.5,
		Max:         30 * time.Second,
	}
}

// Backoff returns the delay before the given retry (1-based)
func (p Policy) Backoff(retry int) time.Duration {
	delay := float64(p.Initial)
	for i := 1; i < retry; i++ {
		delay *= p.Multiplier
	}
	if p.Max > 0 && time.Duration(delay) > p.Max {
		return p.Max
	}
	return time.Duration(delay)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs fn until it succeeds, returns a permanent error, attempts run out,
// or ctx is done. The last error is returned unwrapped from Permanent.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	return do(ctx, p, fn, sleep)
}

func do(ctx context.Context, p Policy, fn func(ctx context.Context) error, wait func(context.Context, time.Duration) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == attempts {
			break
		}
		if werr := wait(ctx, p.Backoff(attempt)); werr != nil {
			return err
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
