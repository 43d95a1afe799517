package sensor

import (
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// VoltageReader is one analog input. ads1x15.PinADC satisfies it.
type VoltageReader interface {
	Read() (analog.Sample, error)
}

// Battery sampling.
const (
	BatterySamples = 16
	DividerRatio   = 2.0 // 100k/100k divider between the cell and the ADC
	batteryPause   = 10 * time.Millisecond
)

// Battery averages several ADC readings of the divided cell voltage.
type Battery struct {
	pin    VoltageReader
	logger *zap.Logger
	sleep  func(time.Duration)
}

// NewBattery wraps pin.
func NewBattery(pin VoltageReader, logger *zap.Logger) *Battery {
	return &Battery{pin: pin, logger: logger, sleep: time.Sleep}
}

// NewADS1115Battery opens channel 0 of an ADS1115 on bus.
func NewADS1115Battery(bus i2c.Bus, logger *zap.Logger) (*Battery, error) {
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		return nil, err
	}
	pin, err := adc.PinForChannel(ads1x15.Channel0, 5*physic.Volt, 128*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, err
	}
	return NewBattery(pin, logger), nil
}

// Read returns the averaged cell voltage. Failed samples are skipped; if
// every sample fails the result is 0.
func (b *Battery) Read() float64 {
	var sum physic.ElectricPotential
	ok := 0
	for i := 0; i < BatterySamples; i++ {
		s, err := b.pin.Read()
		if err != nil {
			b.logger.Debug("battery sample failed", zap.Error(err))
		} else {
			sum += s.V
			ok++
		}
		b.sleep(batteryPause)
	}

	if ok == 0 {
		b.logger.Warn("battery voltage unreadable")
		return 0
	}

	volts := DividerRatio * float64(sum) / float64(ok) / float64(physic.Volt)
	b.logger.Info("battery voltage", zap.Float64("volts", volts))
	return volts
}
