package session

import "time"

// Clock is the time source of a cycle. Tests drive it by hand.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type wallClock struct{}

func (wallClock) Now() time.Time        { return time.Now() }
func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }

// WallClock returns the system clock.
func WallClock() Clock {
	return wallClock{}
}
