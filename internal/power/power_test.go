package power

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/wrist-hr/internal/gpio"
	"github.com/sweeney/wrist-hr/internal/logic"
)

// fakeSysfs lays out the attribute files the controller writes.
func fakeSysfs(t *testing.T) (root, wakeup string) {
	t.Helper()
	root = t.TempDir()
	for _, p := range []string{rtcWakealarm, powerState, "devices/tap-key/power/wakeup"} {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root, filepath.Join(root, "devices/tap-key/power/wakeup")
}

func readAttr(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func newController(t *testing.T, gesture GestureSource) (*SysfsController, string, string, *time.Time) {
	root, wakeup := fakeSysfs(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewSysfsController(root, wakeup, gesture, zap.NewNop())
	c.now = func() time.Time { return now }
	return c, root, wakeup, &now
}

func TestFirstWakeCauseUndefined(t *testing.T) {
	line := gpio.NewFakeTapLine(true)
	line.Trigger()
	c, _, _, _ := newController(t, line)

	if got := c.WakeCause(); got != logic.CauseUndefined {
		t.Errorf("got %s, want UNDEFINED", got)
	}
}

func TestArmTimerWake(t *testing.T) {
	c, root, _, now := newController(t, nil)

	if err := c.ArmTimerWake(5 * time.Minute); err != nil {
		t.Fatalf("ArmTimerWake: %v", err)
	}
	want := "1767269100" // 12:05 UTC
	if got := readAttr(t, filepath.Join(root, rtcWakealarm)); got != want {
		t.Errorf("wakealarm: got %q, want %q", got, want)
	}
	if !c.alarmAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("alarmAt: got %v", c.alarmAt)
	}
}

func TestArmGestureWake(t *testing.T) {
	c, _, wakeup, _ := newController(t, nil)

	if err := c.ArmGestureWake(17); err != nil {
		t.Fatalf("ArmGestureWake: %v", err)
	}
	if got := readAttr(t, wakeup); got != "enabled" {
		t.Errorf("wakeup: got %q", got)
	}
}

func TestArmGestureWakeUnconfigured(t *testing.T) {
	root, _ := fakeSysfs(t)
	c := NewSysfsController(root, "", nil, zap.NewNop())
	if err := c.ArmGestureWake(17); err == nil {
		t.Error("expected error without wakeup device")
	}
}

func TestArmMissingAttribute(t *testing.T) {
	c := NewSysfsController(t.TempDir(), "", nil, zap.NewNop())
	if err := c.ArmTimerWake(time.Minute); err == nil {
		t.Error("expected error for missing wakealarm")
	}
	if err := c.Suspend(); err == nil {
		t.Error("expected error for missing power state")
	}
	if c.WakeCause() != logic.CauseUndefined {
		t.Error("failed suspend should not count as a resume")
	}
}

func TestSuspendAndWakeCause(t *testing.T) {
	tests := []struct {
		name    string
		trigger bool
		level   bool
		elapsed time.Duration
		want    logic.WakeCause
	}{
		{"latched tap", true, false, time.Minute, logic.CauseGPIO},
		{"asserted line", false, true, time.Minute, logic.CauseGPIO},
		{"tap beats alarm", true, false, 10 * time.Minute, logic.CauseGPIO},
		{"alarm expired", false, false, 5 * time.Minute, logic.CauseTimer},
		{"early resume", false, false, time.Minute, logic.CauseOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := gpio.NewFakeTapLine(tt.level)
			c, root, _, now := newController(t, line)

			c.ArmTimerWake(5 * time.Minute)
			if err := c.Suspend(); err != nil {
				t.Fatalf("Suspend: %v", err)
			}
			if got := readAttr(t, filepath.Join(root, powerState)); got != "mem" {
				t.Errorf("power state: got %q", got)
			}

			*now = now.Add(tt.elapsed)
			if tt.trigger {
				line.Trigger()
			}
			if got := c.WakeCause(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSuspendDiscardsTapLatchedWhileAwake(t *testing.T) {
	line := gpio.NewFakeTapLine()
	c, _, _, now := newController(t, line)

	// A tap during a scheduled measurement is never polled.
	line.Trigger()
	c.ArmTimerWake(5 * time.Minute)
	if err := c.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if line.Pending() {
		t.Fatal("latch should be cleared by suspend")
	}

	// The RTC alarm resumes the system.
	*now = now.Add(5 * time.Minute)
	cause := c.WakeCause()
	if cause != logic.CauseTimer {
		t.Fatalf("got %s, want TIMER", cause)
	}

	r := logic.Retained{BootCount: 3, Screen: logic.Graph}
	if reason := logic.Classify(cause, &r); reason != logic.TimerWake {
		t.Errorf("reason: got %s, want TIMER", reason)
	}
	if r.Screen != logic.Graph {
		t.Errorf("screen: got %s, want GRAPH", r.Screen)
	}
}

func TestWakeCauseLevelError(t *testing.T) {
	line := gpio.NewFakeTapLine()
	line.ReadError = errors.New("gone")
	c, _, _, now := newController(t, line)

	c.ArmTimerWake(time.Minute)
	c.Suspend()
	*now = now.Add(2 * time.Minute)

	if got := c.WakeCause(); got != logic.CauseTimer {
		t.Errorf("got %s, want TIMER", got)
	}
}

func TestDryRun(t *testing.T) {
	var c Controller = DryRun{Cause: logic.CauseExt0, Logger: zap.NewNop()}
	if c.WakeCause() != logic.CauseExt0 {
		t.Error("unexpected cause")
	}
	if c.ArmTimerWake(time.Minute) != nil || c.ArmGestureWake(1) != nil || c.Suspend() != nil {
		t.Error("dry run should never fail")
	}
}

func TestFakeController(t *testing.T) {
	var calls []string
	f := &FakeController{
		Causes: []logic.WakeCause{logic.CauseUndefined, logic.CauseTimer},
		Trace:  func(c string) { calls = append(calls, c) },
	}

	if f.WakeCause() != logic.CauseUndefined || f.WakeCause() != logic.CauseTimer || f.WakeCause() != logic.CauseTimer {
		t.Error("unexpected cause sequence")
	}

	f.ArmTimerWake(5 * time.Minute)
	f.ArmGestureWake(17)
	f.Suspend()
	want := []string{"power.timer", "power.gesture", "power.suspend"}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("got %v, want %v", calls, want)
		}
	}
	if f.SuspendCalls != 1 || f.TimerWakes[0] != 5*time.Minute || f.GesturePins[0] != 17 {
		t.Errorf("unexpected record %+v", f)
	}
}
