package sensor

import (
	"context"
	"time"
)

// FakeAdapter is a test double returning scripted readings.
type FakeAdapter struct {
	// BPM contains scripted heart-rate results. Each measurement consumes the
	// next one; the last is repeated. Empty means 0.
	BPM []uint8

	// Volts is returned by every battery read.
	Volts float64

	// Gestures maps 1-based poll numbers to a confirmed double tap.
	Gestures map[int]bool

	// Sleep, if set, is called with the window on each measurement so a
	// fake clock can advance.
	Sleep func(time.Duration)

	// Trace, if set, receives the name of each call.
	Trace func(call string)

	// ShutdownError, if set, will be returned by Shutdown()
	ShutdownError error

	Measures      int
	Windows       []time.Duration
	Polls         int
	Drains        int
	ShutdownCalls int
}

// MeasureHeartRate returns the next scripted BPM.
func (f *FakeAdapter) MeasureHeartRate(ctx context.Context, window time.Duration) uint8 {
	f.trace("measure")
	f.Windows = append(f.Windows, window)
	idx := f.Measures
	f.Measures++

	if f.Sleep != nil {
		f.Sleep(window)
	}

	if len(f.BPM) == 0 {
		return 0
	}
	if idx >= len(f.BPM) {
		idx = len(f.BPM) - 1
	}
	return f.BPM[idx]
}

// ReadBatteryVoltage returns Volts.
func (f *FakeAdapter) ReadBatteryVoltage() float64 {
	f.trace("battery")
	return f.Volts
}

// PollConfirmedGesture reports whether this poll number is scripted.
func (f *FakeAdapter) PollConfirmedGesture() bool {
	f.Polls++
	return f.Gestures[f.Polls]
}

// DrainGesture counts drains.
func (f *FakeAdapter) DrainGesture() {
	f.trace("drain")
	f.Drains++
}

// Shutdown counts calls and returns ShutdownError.
func (f *FakeAdapter) Shutdown() error {
	f.trace("sensors.shutdown")
	f.ShutdownCalls++
	return f.ShutdownError
}

func (f *FakeAdapter) trace(call string) {
	if f.Trace != nil {
		f.Trace(call)
	}
}
