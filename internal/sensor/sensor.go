// Package sensor measures heart rate and battery voltage and confirms
// double-tap gestures.
//
// Each part is optional: a Suite built with a missing part degrades to the
// empty reading (0 BPM, 0 V, no gesture) so a wake cycle always completes.
package sensor

import (
	"context"
	"errors"
	"time"
)

// Adapter is the sensor surface the session controller drives.
type Adapter interface {
	// MeasureHeartRate blocks for window and returns the averaged BPM,
	// or 0 when no finger or no stable beat was seen.
	MeasureHeartRate(ctx context.Context, window time.Duration) uint8

	// ReadBatteryVoltage returns the battery voltage, or 0 if unreadable.
	ReadBatteryVoltage() float64

	// PollConfirmedGesture consumes a latched tap interrupt and reports
	// whether the accelerometer confirms a double tap.
	PollConfirmedGesture() bool

	// DrainGesture discards any latched interrupt.
	DrainGesture()

	// Shutdown puts the sensors into their low-power state before suspend.
	Shutdown() error
}

// ErrInitFailed is wrapped by Open when a sensor cannot be brought up.
var ErrInitFailed = errors.New("sensor init failed")

// Heart-rate limits. Beats outside this range are discarded and an average
// outside it is reported as 0.
const (
	MinBPM   = 40
	MaxBPM   = 180
	RateSize = 4 // beats averaged
)

// DefaultMeasureWindow is the production measurement window.
const DefaultMeasureWindow = 15 * time.Second
