// Package power arms wake sources and suspends the system.
//
// The real controller drives Linux sysfs: the RTC wake alarm, the wakeup
// attribute of the tap interrupt's input device, and /sys/power/state.
// Suspend returns once the system resumes.
package power

import (
	"time"

	"github.com/sweeney/wrist-hr/internal/logic"
)

// Controller is the platform power surface.
type Controller interface {
	// WakeCause reports why the current cycle started. The first call in a
	// process reports CauseUndefined.
	WakeCause() logic.WakeCause

	// ArmTimerWake schedules a wake d from now.
	ArmTimerWake(d time.Duration) error

	// ArmGestureWake enables level wake on the tap interrupt pin.
	ArmGestureWake(pin int) error

	// Suspend sleeps until a wake source fires.
	Suspend() error
}

// GestureSource reports whether the tap line caused a wake.
// gpio.TapLine satisfies it.
type GestureSource interface {
	Take() bool
	Pending() bool
	Level() (bool, error)
}

// DefaultTimerWake is the scheduled measurement interval.
const DefaultTimerWake = 5 * time.Minute
