// Package logic contains the pure wake, screen and session rules for the watch.
// This package has NO external dependencies (no GPIO, storage, display, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// WakeCause is the platform code reporting why the system resumed.
type WakeCause uint8

const (
	CauseUndefined WakeCause = iota // power-on, reset, or unknown
	CauseTimer                      // RTC alarm
	CauseExt0                       // single level-triggered wake pin
	CauseGPIO                       // generic GPIO wake
	CauseOther                      // any other source (e.g. power button)
)

func (c WakeCause) String() string {
	switch c {
	case CauseUndefined:
		return "UNDEFINED"
	case CauseTimer:
		return "TIMER"
	case CauseExt0:
		return "EXT0"
	case CauseGPIO:
		return "GPIO"
	case CauseOther:
		return "OTHER"
	}
	return fmt.Sprintf("CAUSE(%d)", uint8(c))
}

// WakeReason is the classified reason for the current wake cycle.
// It is recomputed every wake and never persisted.
type WakeReason string

const (
	ColdBoot    WakeReason = "BOOT"
	TimerWake   WakeReason = "TIMER"
	GestureWake WakeReason = "TAP"
)

// ScreenMode selects which screen the renderer draws.
type ScreenMode uint8

const (
	Dashboard ScreenMode = iota
	Graph
	SleepSummary
)

func (s ScreenMode) String() string {
	switch s {
	case Dashboard:
		return "DASHBOARD"
	case Graph:
		return "GRAPH"
	case SleepSummary:
		return "SLEEP_SUMMARY"
	}
	return "UNKNOWN"
}

// SessionState is the controller state for one wake cycle.
type SessionState string

const (
	Idle                 SessionState = "IDLE"
	InteractiveSession   SessionState = "INTERACTIVE"
	ScheduledMeasurement SessionState = "SCHEDULED"
)

// Retained is the state that survives deep sleep.
type Retained struct {
	// Incremented once per power-on.
	BootCount uint32
	// Active screen, mutated only by Advance.
	Screen ScreenMode
}

// Snapshot is the data captured during one wake cycle and handed to the renderer.
type Snapshot struct {
	BPM   uint8   // 0 = no reading
	Volts float64 // battery voltage
	Taken time.Time
}

// Measurement is a stored heart-rate reading, published as telemetry.
type Measurement struct {
	Timestamp    time.Time
	CycleID      string
	Reason       WakeReason
	BPM          uint8
	Volts        float64
	HistoryCount int
}
