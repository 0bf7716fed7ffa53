package utils

import (
	"context"
	"time"
)

type Backoff struct {
	base       time.Duration
	maxRetries int
	fixed      bool
}

// NewBackoff doubles the wait after every failed attempt.
func NewBackoff(base time.Duration, maxRetries int) Backoff {
	return Backoff{base: base, maxRetries: maxRetries}
}

// FixedBackoff waits the same delay between attempts.
func FixedBackoff(delay time.Duration, maxRetries int) Backoff {
	return Backoff{base: delay, maxRetries: maxRetries, fixed: true}
}

func (b Backoff) Retries() int { return b.maxRetries }

// Delay is the wait after failed attempt i (0-based).
func (b Backoff) Delay(i int) time.Duration {
	if b.fixed {
		return b.base
	}
	return time.Duration(1<<i) * b.base
}

// Do calls fn until it succeeds, the retries run out, fn returns a Permanent
// error or ctx is done. It does not sleep after the last attempt.
func (b Backoff) Do(ctx context.Context, fn func(i int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		err = fn(i)
		if err == nil {
			return nil
		}
		if p, ok := err.(permanent); ok {
			return p.err
		}
		if i == b.maxRetries {
			break
		}
		if serr := Sleep(ctx, b.Delay(i)); serr != nil {
			return err
		}
	}
	return err
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }

// Permanent stops Do from retrying err.
func Permanent(err error) error { return permanent{err} }

// Sleep waits d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
