package watcher

import (
	"context"
	"time"
)

// Sleeper pauses the loop between cycles. Implementations must return early
// with ctx.Err() when ctx is cancelled.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ClockSleeper waits on the wall clock.
type ClockSleeper struct{}

// Sleep blocks for d or until ctx is done.
func (ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
