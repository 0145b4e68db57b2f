package shared

import "time"

// Timer is the part of [time.Timer] that callers need to cancel a pending callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time so that timed behavior can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the real [Clock].
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
