package power

import (
	"time"

	"github.com/sweeney/wrist-hr/internal/logic"
)

// FakeController is a test double with scripted wake causes.
type FakeController struct {
	// Causes contains scripted wake causes. Each WakeCause() call consumes
	// the next one; the last is repeated. Empty means CauseUndefined.
	Causes []logic.WakeCause

	// index tracks current position in Causes
	index int

	// Trace, if set, receives the name of each arming call.
	Trace func(call string)

	// SuspendError, if set, will be returned by Suspend()
	SuspendError error

	// OnSuspend, if set, runs inside Suspend (e.g. to advance a fake clock).
	OnSuspend func()

	TimerWakes   []time.Duration
	GesturePins  []int
	SuspendCalls int
}

// WakeCause returns the next scripted cause.
func (f *FakeController) WakeCause() logic.WakeCause {
	if len(f.Causes) == 0 {
		return logic.CauseUndefined
	}
	c := f.Causes[f.index]
	if f.index < len(f.Causes)-1 {
		f.index++
	}
	return c
}

// ArmTimerWake records d.
func (f *FakeController) ArmTimerWake(d time.Duration) error {
	f.trace("power.timer")
	f.TimerWakes = append(f.TimerWakes, d)
	return nil
}

// ArmGestureWake records pin.
func (f *FakeController) ArmGestureWake(pin int) error {
	f.trace("power.gesture")
	f.GesturePins = append(f.GesturePins, pin)
	return nil
}

// Suspend counts calls.
func (f *FakeController) Suspend() error {
	f.trace("power.suspend")
	f.SuspendCalls++
	if f.OnSuspend != nil {
		f.OnSuspend()
	}
	return f.SuspendError
}

func (f *FakeController) trace(call string) {
	if f.Trace != nil {
		f.Trace(call)
	}
}
