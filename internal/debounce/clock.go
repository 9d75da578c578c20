package debounce

import "time"

// Timer is a cancellable fire-once timer.
type Timer interface {
	Stop() bool
}

// Clock schedules fire-once callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
