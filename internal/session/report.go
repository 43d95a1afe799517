package session

import (
	"time"

	"github.com/sweeney/wrist-hr/internal/logic"
)

// Report describes one completed wake cycle.
type Report struct {
	CycleID   string
	Cause     logic.WakeCause
	Reason    logic.WakeReason
	State     logic.SessionState
	BootCount uint32

	Snapshot     logic.Snapshot
	Stored       bool // reading appended to history
	HistoryCount int

	Renders  []logic.ScreenMode // screens drawn, in order
	Advances int
	Screen   logic.ScreenMode // active screen at shutdown

	Started  time.Time
	Finished time.Time // set before the shutdown sequence

	SuspendErr error // the device stayed awake
}

// Duration is the awake time before the shutdown sequence.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Measurement returns the stored reading, if any.
func (r Report) Measurement() (logic.Measurement, bool) {
	if !r.Stored {
		return logic.Measurement{}, false
	}
	return logic.Measurement{
		Timestamp:    r.Snapshot.Taken,
		CycleID:      r.CycleID,
		Reason:       r.Reason,
		BPM:          r.Snapshot.BPM,
		Volts:        r.Snapshot.Volts,
		HistoryCount: r.HistoryCount,
	}, true
}
