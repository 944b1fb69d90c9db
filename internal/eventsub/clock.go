package eventsub

import "time"

// Clock returns the current instant and produces timers against it. It is
// injected everywhere the session loop needs to reason about time so that
// watchdog behavior can be driven deterministically in tests instead of by
// real wall-clock sleeps.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the minimal surface of time.Timer the session loop needs.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// realClock is the production Clock, backed by the standard library.
type realClock struct{}

// NewRealClock returns the production Clock backed by wall-clock time.
func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r *realTimer) C() <-chan time.Time { return r.t.C }
func (r *realTimer) Stop() bool          { return r.t.Stop() }
