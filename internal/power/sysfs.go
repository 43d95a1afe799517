package power

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/wrist-hr/internal/logic"
)

// Sysfs paths relative to the sysfs root.
const (
	rtcWakealarm = "class/rtc/rtc0/wakealarm"
	powerState   = "power/state"
)

// SysfsController suspends to RAM through sysfs.
type SysfsController struct {
	root      string
	wakeupDev string
	gesture   GestureSource
	logger    *zap.Logger
	now       func() time.Time

	resumed bool
	alarmAt time.Time
}

// NewSysfsController returns a controller rooted at root (normally "/sys").
// wakeupDev is the power/wakeup attribute of the tap wake source; gesture
// may be nil.
func NewSysfsController(root, wakeupDev string, gesture GestureSource, logger *zap.Logger) *SysfsController {
	return &SysfsController{
		root:      root,
		wakeupDev: wakeupDev,
		gesture:   gesture,
		logger:    logger,
		now:       time.Now,
	}
}

// WakeCause derives the resume source. A latched or asserted tap line wins
// over an expired alarm.
func (c *SysfsController) WakeCause() logic.WakeCause {
	if !c.resumed {
		return logic.CauseUndefined
	}

	if c.gesture != nil {
		if c.gesture.Pending() {
			return logic.CauseGPIO
		}
		level, err := c.gesture.Level()
		if err != nil {
			c.logger.Warn("read tap line level failed", zap.Error(err))
		} else if level {
			return logic.CauseGPIO
		}
	}

	if !c.alarmAt.IsZero() && !c.now().Before(c.alarmAt) {
		return logic.CauseTimer
	}
	return logic.CauseOther
}

// ArmTimerWake clears any pending alarm and sets a new absolute one.
func (c *SysfsController) ArmTimerWake(d time.Duration) error {
	path := filepath.Join(c.root, rtcWakealarm)
	if err := writeAttr(path, "0"); err != nil {
		return fmt.Errorf("clear wake alarm: %w", err)
	}

	at := c.now().Add(d)
	if err := writeAttr(path, strconv.FormatInt(at.Unix(), 10)); err != nil {
		return fmt.Errorf("set wake alarm: %w", err)
	}
	c.alarmAt = at.Truncate(time.Second)
	c.logger.Info("timer wake armed", zap.Duration("in", d), zap.Time("at", at))
	return nil
}

// ArmGestureWake enables the tap input device as a wake source.
func (c *SysfsController) ArmGestureWake(pin int) error {
	if c.wakeupDev == "" {
		return fmt.Errorf("no wakeup device configured for pin %d", pin)
	}
	if err := writeAttr(c.wakeupDev, "enabled"); err != nil {
		return fmt.Errorf("enable gesture wake: %w", err)
	}
	c.logger.Info("gesture wake armed", zap.Int("pin", pin), zap.String("device", c.wakeupDev))
	return nil
}

// Suspend writes "mem" to the power state file. The write returns after resume.
// A tap latched while awake is discarded first; only edges that arrive after
// this point count as a gesture wake.
func (c *SysfsController) Suspend() error {
	if c.gesture != nil && c.gesture.Take() {
		c.logger.Debug("discarded tap latched before suspend")
	}
	c.logger.Info("suspending")
	if err := writeAttr(filepath.Join(c.root, powerState), "mem"); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	c.resumed = true
	c.logger.Info("resumed")
	return nil
}

// writeAttr writes a sysfs attribute. Attributes exist already; O_CREATE is
// not used so a wrong path fails instead of creating a file.
func writeAttr(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
