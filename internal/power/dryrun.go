package power

import (
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/wrist-hr/internal/logic"
)

// DryRun reports a fixed wake cause and only logs what it would arm.
// Used for bench runs where the host must stay up.
type DryRun struct {
	Cause  logic.WakeCause
	Logger *zap.Logger
}

// WakeCause returns Cause.
func (d DryRun) WakeCause() logic.WakeCause {
	return d.Cause
}

// ArmTimerWake logs.
func (d DryRun) ArmTimerWake(dur time.Duration) error {
	d.Logger.Info("dry run: timer wake", zap.Duration("in", dur))
	return nil
}

// ArmGestureWake logs.
func (d DryRun) ArmGestureWake(pin int) error {
	d.Logger.Info("dry run: gesture wake", zap.Int("pin", pin))
	return nil
}

// Suspend logs and returns immediately.
func (d DryRun) Suspend() error {
	d.Logger.Info("dry run: suspend skipped")
	return nil
}
