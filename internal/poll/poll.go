// Package poll waits for operating-system state to converge: a condition
// is checked, then re-checked after a fixed interval until it holds or a
// bounded number of attempts is spent.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the attempt budget is exhausted.
var ErrTimeout = errors.New("condition not met")

// Options configures a poll loop.
type Options struct {
	// Interval is the sleep between checks.
	Interval time.Duration
	// Attempts is the number of re-checks after the initial one.
	Attempts int
}

// Budget returns the longest time Until can sleep before giving up.
func (o Options) Budget() time.Duration {
	return o.Interval * time.Duration(o.Attempts)
}

// Condition reports whether the awaited state has been reached. A non-nil
// error stops the loop immediately.
type Condition func() (bool, error)

// Until checks cond once, then sleeps Interval and re-checks up to Attempts
// times. It returns nil as soon as cond holds, the condition's error if it
// fails, ctx.Err() on cancellation, or an error wrapping ErrTimeout.
func Until(ctx context.Context, opts Options, cond Condition) error {
	if opts.Attempts < 0 {
		return fmt.Errorf("invalid attempt count %d", opts.Attempts)
	}

	ok, err := cond()
	if err != nil || ok {
		return err
	}

	timer := time.NewTimer(opts.Interval)
	defer timer.Stop()

	for i := 0; i < opts.Attempts; i++ {
		if i > 0 {
			timer.Reset(opts.Interval)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		ok, err := cond()
		if err != nil || ok {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts (%s)", ErrTimeout, opts.Attempts, opts.Budget())
}
