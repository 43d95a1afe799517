//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealTapLine watches the tap interrupt pin using Linux GPIO character device.
type RealTapLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	flag Flag
}

// NewRealTapLine requests pin on chipName as an edge-watched input.
func NewRealTapLine(chipName string, pin int) (*RealTapLine, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	t := &RealTapLine{chip: chip}

	// The accelerometer drives INT1 push-pull active-high; pull-down keeps
	// the line quiet while the sensor is powered off.
	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			t.flag.Set()
		}))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request tap pin %d: %w", pin, err)
	}
	t.line = line

	return t, nil
}

// Take consumes a latched edge.
func (t *RealTapLine) Take() bool {
	return t.flag.Take()
}

// Pending reports a latched edge without consuming it.
func (t *RealTapLine) Pending() bool {
	return t.flag.Pending()
}

// Level reads the current line value.
func (t *RealTapLine) Level() (bool, error) {
	v, err := t.line.Value()
	if err != nil {
		return false, fmt.Errorf("read tap pin: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing.
func (t *RealTapLine) Close() error {
	var errs []error

	if t.line != nil {
		if err := t.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure tap pin: %w", err))
		}
		if err := t.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tap pin: %w", err))
		}
	}
	if t.chip != nil {
		if err := t.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
