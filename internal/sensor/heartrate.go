package sensor

import (
	"context"
	"errors"
	"time"

	"github.com/cgxeiji/max3010x"
	"go.uber.org/zap"
)

// RateMeter is a PPG sensor reporting one beat-to-beat rate per call.
// *max3010x.Device satisfies it.
type RateMeter interface {
	HeartRate() (float64, error)
	Startup() error
	Shutdown() error
}

// sampleInterval paces reads at ~50 Hz.
const sampleInterval = 20 * time.Millisecond

// readTimeout is the driver's own limit on one HeartRate call.
const readTimeout = 7 * time.Second

// HeartRateMonitor averages the last RateSize valid beats over a window.
type HeartRateMonitor struct {
	meter  RateMeter
	logger *zap.Logger
	now    func() time.Time
	sleep  func(time.Duration)
}

// NewHeartRateMonitor wraps meter with the wall clock.
func NewHeartRateMonitor(meter RateMeter, logger *zap.Logger) *HeartRateMonitor {
	return &HeartRateMonitor{
		meter:  meter,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Measure reads the sensor until window has elapsed or ctx is done.
// A driver read cannot be interrupted, so no read starts when less of the
// window is left than the slowest read so far took. A read slower than all
// before it can still overrun the window by up to readTimeout.
func (m *HeartRateMonitor) Measure(ctx context.Context, window time.Duration) uint8 {
	if err := m.meter.Startup(); err != nil {
		m.logger.Warn("heart rate sensor startup failed", zap.Error(err))
	}

	var rates [RateSize]uint8
	spot, n := 0, 0
	finger := false
	reads := 0

	var slowest time.Duration
	start := m.now()
	for {
		left := window - m.now().Sub(start)
		if left <= 0 {
			break
		}
		if left < slowest {
			m.logger.Debug("window too short for another read",
				zap.Duration("left", left), zap.Duration("slowest_read", slowest))
			break
		}
		if ctx.Err() != nil {
			m.logger.Info("heart rate measurement cancelled", zap.Error(ctx.Err()))
			break
		}

		readStart := m.now()
		bpm, err := m.meter.HeartRate()
		if d := m.now().Sub(readStart); d > slowest {
			slowest = d
		}
		reads++
		switch {
		case errors.Is(err, max3010x.ErrNotDetected):
		case errors.Is(err, max3010x.ErrTooNoisy):
			finger = true
		case err != nil:
			m.logger.Debug("heart rate read failed", zap.Error(err))
		default:
			finger = true
			if bpm >= MinBPM && bpm <= MaxBPM {
				rates[spot] = uint8(bpm)
				spot = (spot + 1) % RateSize
				if n < RateSize {
					n++
				}
			}
		}

		m.sleep(sampleInterval)
	}

	if !finger {
		m.logger.Info("no finger detected during measurement", zap.Int("reads", reads))
		return 0
	}

	avg := average(rates[:n])
	if avg < MinBPM || avg > MaxBPM {
		m.logger.Info("no stable heart rate", zap.Int("beats", n))
		return 0
	}

	m.logger.Info("heart rate measurement complete", zap.Int("bpm", avg), zap.Int("beats", n))
	return uint8(avg)
}

// Shutdown puts the sensor into power-save mode.
func (m *HeartRateMonitor) Shutdown() error {
	return m.meter.Shutdown()
}

func average(rates []uint8) int {
	if len(rates) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rates {
		sum += int(r)
	}
	return sum / len(rates)
}
