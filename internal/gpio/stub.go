//go:build !linux

package gpio

import "errors"

// RealTapLine is not available on non-Linux platforms.
type RealTapLine struct{}

// NewRealTapLine returns an error on non-Linux platforms.
func NewRealTapLine(chipName string, pin int) (*RealTapLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Take is not implemented on non-Linux platforms.
func (t *RealTapLine) Take() bool {
	return false
}

// Pending is not implemented on non-Linux platforms.
func (t *RealTapLine) Pending() bool {
	return false
}

// Level is not implemented on non-Linux platforms.
func (t *RealTapLine) Level() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (t *RealTapLine) Close() error {
	return nil
}
