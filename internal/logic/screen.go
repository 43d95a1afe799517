package logic

import "time"

// Next returns the screen after s in the ring Dashboard -> Graph -> SleepSummary.
// Unknown values restart the ring at Dashboard.
func (s ScreenMode) Next() ScreenMode {
	switch s {
	case Dashboard:
		return Graph
	case Graph:
		return SleepSummary
	}
	return Dashboard
}

// Advance moves the retained screen one step around the ring and returns it.
// The caller persists Retained afterwards.
func (r *Retained) Advance() ScreenMode {
	r.Screen = r.Screen.Next()
	return r.Screen
}

// Inactivity tracks the deadline of an interactive session.
// Each confirmed gesture pushes the deadline to now + timeout.
type Inactivity struct {
	timeout  time.Duration
	deadline time.Time
}

// NewInactivity starts a deadline at now + timeout.
func NewInactivity(timeout time.Duration, now time.Time) *Inactivity {
	return &Inactivity{timeout: timeout, deadline: now.Add(timeout)}
}

// Reset moves the deadline to now + timeout.
func (i *Inactivity) Reset(now time.Time) {
	i.deadline = now.Add(i.timeout)
}

// Expired reports whether now is at or past the deadline.
func (i *Inactivity) Expired(now time.Time) bool {
	return !now.Before(i.deadline)
}

// Deadline returns the current deadline.
func (i *Inactivity) Deadline() time.Time {
	return i.deadline
}
