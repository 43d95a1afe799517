package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cgxeiji/max3010x"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sweeney/wrist-hr/internal/gpio"
)

// Suite is the hardware Adapter. Any part may be nil.
type Suite struct {
	HeartRate *HeartRateMonitor
	Battery   *Battery
	Tap       *TapDetector
	TapLine   gpio.TapLine // also the wake source seen by the power controller

	logger  *zap.Logger
	closers []func() error
}

// Options selects the hardware Open brings up.
type Options struct {
	I2CBus   string // "" selects the first bus
	GPIOChip string
	TapPin   int
}

// Open brings up every sensor it can. The returned Suite is always usable;
// the error, if any, wraps ErrInitFailed and lists the parts that failed.
func Open(opts Options, logger *zap.Logger) (*Suite, error) {
	s := &Suite{logger: logger}
	var errs []error

	if _, err := host.Init(); err != nil {
		errs = append(errs, fmt.Errorf("host init: %w", err))
	}

	hr, err := max3010x.New()
	if err != nil {
		errs = append(errs, fmt.Errorf("max30102: %w", err))
	} else {
		s.HeartRate = NewHeartRateMonitor(hr, logger.Named("heartrate"))
		s.closers = append(s.closers, func() error { hr.Close(); return nil })
	}

	var bus i2c.BusCloser
	if b, err := i2creg.Open(opts.I2CBus); err != nil {
		errs = append(errs, fmt.Errorf("open i2c bus %q: %w", opts.I2CBus, err))
	} else {
		bus = b
		s.closers = append(s.closers, b.Close)
	}

	if bus != nil {
		if bat, err := NewADS1115Battery(bus, logger.Named("battery")); err != nil {
			errs = append(errs, fmt.Errorf("ads1115: %w", err))
		} else {
			s.Battery = bat
		}
	}

	line, err := gpio.NewRealTapLine(opts.GPIOChip, opts.TapPin)
	if err != nil {
		errs = append(errs, fmt.Errorf("tap line: %w", err))
	} else {
		s.TapLine = line
		s.closers = append(s.closers, line.Close)

		var accel RegisterBus
		if bus != nil {
			accel = &i2c.Dev{Bus: bus, Addr: BMA400Addr}
		}
		tap := NewTapDetector(line, accel, logger.Named("tap"))
		if err := tap.Configure(); err != nil {
			errs = append(errs, fmt.Errorf("bma400: %w", err))
			tap = NewTapDetector(line, nil, logger.Named("tap"))
		}
		s.Tap = tap
	}

	if len(errs) > 0 {
		return s, fmt.Errorf("%w: %w", ErrInitFailed, errors.Join(errs...))
	}
	return s, nil
}

// MeasureHeartRate returns 0 without a heart-rate sensor.
func (s *Suite) MeasureHeartRate(ctx context.Context, window time.Duration) uint8 {
	if s.HeartRate == nil {
		s.logger.Warn("no heart rate sensor, skipping measurement")
		return 0
	}
	return s.HeartRate.Measure(ctx, window)
}

// ReadBatteryVoltage returns 0 without an ADC.
func (s *Suite) ReadBatteryVoltage() float64 {
	if s.Battery == nil {
		return 0
	}
	return s.Battery.Read()
}

// PollConfirmedGesture returns false without a tap line.
func (s *Suite) PollConfirmedGesture() bool {
	if s.Tap == nil {
		return false
	}
	return s.Tap.Poll()
}

// DrainGesture discards a latched tap.
func (s *Suite) DrainGesture() {
	if s.Tap != nil {
		s.Tap.Drain()
	}
}

// Shutdown powers down the heart-rate sensor. The accelerometer stays in
// normal mode so a double tap can wake the device.
func (s *Suite) Shutdown() error {
	if s.HeartRate == nil {
		return nil
	}
	if err := s.HeartRate.Shutdown(); err != nil {
		return fmt.Errorf("heart rate shutdown: %w", err)
	}
	return nil
}

// Close releases buses and lines in reverse order of acquisition.
func (s *Suite) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
