package sensor

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sweeney/wrist-hr/internal/gpio"
)

// RegisterBus is a register-level connection to the accelerometer.
// *i2c.Dev satisfies it.
type RegisterBus interface {
	Tx(w, r []byte) error
}

// BMA400 registers and bits.
const (
	BMA400Addr = 0x14

	regChipID     = 0x00
	regIntStat1   = 0x0F
	regAccConfig0 = 0x19
	regAccConfig1 = 0x1A
	regIntConfig1 = 0x20
	regInt12Map   = 0x23
	regInt12IO    = 0x24
	regTapConfig  = 0x57
	regTapConfig1 = 0x58

	bma400ChipID = 0x90

	dTapIntStat            = 0x08 // INT_STAT1: double tap asserted
	dTapIntEn              = 0x08 // INT_CONFIG1: double tap enable
	tapInt1Map             = 0x04 // INT12_MAP: tap interrupts on INT1
	int1PushPullActiveHigh = 0x06
	modeNormal             = 0x02
	odr200Hz               = 0x49 // osr 1, range 4g, odr 200 Hz
	tapAxisZ               = 0x00 // sel_axis Z, sensitivity 0 (highest)
	tapTiming              = 0x06 // quiet_dt 4, quiet 60, tics_th 6 samples
)

// TapDetector confirms GPIO edges against the accelerometer's latched
// interrupt status.
type TapDetector struct {
	line   gpio.TapLine
	bus    RegisterBus // nil: edges are accepted unconfirmed
	logger *zap.Logger
}

// NewTapDetector pairs line with bus. bus may be nil when the accelerometer
// is not reachable over I2C.
func NewTapDetector(line gpio.TapLine, bus RegisterBus, logger *zap.Logger) *TapDetector {
	return &TapDetector{line: line, bus: bus, logger: logger}
}

// Configure enables double-tap detection routed to INT1.
func (t *TapDetector) Configure() error {
	if t.bus == nil {
		return nil
	}

	id, err := t.read(regChipID)
	if err != nil {
		return fmt.Errorf("read chip id: %w", err)
	}
	if id != bma400ChipID {
		return fmt.Errorf("unexpected chip id 0x%02x", id)
	}

	writes := []struct {
		reg, val byte
	}{
		{regAccConfig0, modeNormal},
		{regAccConfig1, odr200Hz},
		{regTapConfig, tapAxisZ},
		{regTapConfig1, tapTiming},
		{regInt12IO, int1PushPullActiveHigh},
		{regInt12Map, tapInt1Map},
		{regIntConfig1, dTapIntEn},
	}
	for _, w := range writes {
		if err := t.bus.Tx([]byte{w.reg, w.val}, nil); err != nil {
			return fmt.Errorf("write reg 0x%02x: %w", w.reg, err)
		}
	}
	return nil
}

// Poll consumes a latched edge and confirms it by reading INT_STAT1, which
// also clears the accelerometer's latch.
func (t *TapDetector) Poll() bool {
	if !t.line.Take() {
		return false
	}
	if t.bus == nil {
		t.logger.Debug("tap edge accepted without confirmation")
		return true
	}

	status, err := t.read(regIntStat1)
	if err != nil {
		t.logger.Warn("read tap interrupt status failed", zap.Error(err))
		return false
	}
	if status&dTapIntStat == 0 {
		t.logger.Debug("tap edge without double tap", zap.Uint8("int_stat1", status))
		return false
	}

	t.logger.Info("double tap detected")
	return true
}

// Drain discards a latched edge and clears the accelerometer's status.
func (t *TapDetector) Drain() {
	t.line.Take()
	if t.bus != nil {
		if _, err := t.read(regIntStat1); err != nil {
			t.logger.Debug("clear tap interrupt status failed", zap.Error(err))
		}
	}
}

func (t *TapDetector) read(reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := t.bus.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}
