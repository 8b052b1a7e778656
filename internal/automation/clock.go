package automation

import (
	"context"
	"time"
)

// Clock abstracts wall-clock time, one-shot timers and suspension so the
// scheduler and executor can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	Sleep(ctx context.Context, d time.Duration) error
}

// Timer is an armed one-shot timer. Stop reports whether it was cancelled
// before firing.
type Timer interface {
	Stop() bool
}

type realClock struct{}

// NewClock returns the real wall-clock implementation.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool { return r.t.Stop() }
