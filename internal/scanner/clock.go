package scanner

import (
	"context"
	"time"
)

// Clock supplies time to the scan loop.
type Clock interface {
	Now() time.Time
	// Sleep waits for d and returns false if ctx ended first.
	Sleep(ctx context.Context, d time.Duration) bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// remaining is how long to sleep to hold interval after work of elapsed.
func remaining(interval, elapsed time.Duration) time.Duration {
	return max(0, interval-elapsed)
}
