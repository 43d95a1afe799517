// Package gpio provides the accelerometer tap interrupt line with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "sync/atomic"

// TapLine is the GPIO input wired to the accelerometer interrupt pin.
// Rising edges are latched in a flag until Take consumes them.
type TapLine interface {
	// Take reports whether an edge was latched since the last Take, and clears it.
	Take() bool

	// Pending reports whether an edge is latched without clearing it.
	Pending() bool

	// Level returns the current raw line level (true = high).
	Level() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultTapPin is the BCM pin of the accelerometer INT1 output.
const DefaultTapPin = 17

// Flag is a single-producer, single-consumer latch. The edge handler goroutine
// sets it; the session goroutine takes it.
type Flag struct {
	v atomic.Bool
}

// Set latches the flag.
func (f *Flag) Set() {
	f.v.Store(true)
}

// Take returns the latched value and clears it.
func (f *Flag) Take() bool {
	return f.v.Swap(false)
}

// Pending returns the latched value.
func (f *Flag) Pending() bool {
	return f.v.Load()
}
