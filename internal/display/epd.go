package display

import (
	"fmt"
	"image"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"
)

// Panel is the e-paper controller. *waveshare2in13v4.Dev satisfies it.
type Panel interface {
	Init() error
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Sleep() error
	Halt() error
	Bounds() image.Rectangle
}

// EPD renders frames onto a portrait Waveshare 2.13" V4 panel.
type EPD struct {
	panel    Panel
	port     spi.PortCloser
	logger   *zap.Logger
	sleeping bool
}

// OpenEPD initialises the HAT on spiPort ("" selects the first port).
func OpenEPD(spiPort string, logger *zap.Logger) (*EPD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: host init: %v", ErrInitFailed, err)
	}
	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("%w: open spi %q: %v", ErrInitFailed, spiPort, err)
	}

	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: new hat: %v", ErrInitFailed, err)
	}

	e, err := NewEPD(dev, logger)
	if err != nil {
		port.Close()
		return nil, err
	}
	e.port = port
	return e, nil
}

// NewEPD initialises panel.
func NewEPD(panel Panel, logger *zap.Logger) (*EPD, error) {
	if err := panel.Init(); err != nil {
		return nil, fmt.Errorf("%w: panel init: %v", ErrInitFailed, err)
	}
	return &EPD{panel: panel, logger: logger}, nil
}

// RenderDashboard draws the reading screen.
func (e *EPD) RenderDashboard(bpm uint8, volts float64, buildingHistory bool) error {
	e.logger.Info("rendering dashboard",
		zap.Uint8("bpm", bpm),
		zap.Float64("volts", volts),
		zap.Bool("building_history", buildingHistory))
	return e.show(DashboardFrame(bpm, volts, buildingHistory))
}

// RenderGraph draws the history graph.
func (e *EPD) RenderGraph(samples []uint8) error {
	e.logger.Info("rendering graph", zap.Int("slots", len(samples)))
	return e.show(GraphFrame(samples))
}

// RenderSleepSummary draws the sleep screen.
func (e *EPD) RenderSleepSummary() error {
	e.logger.Info("rendering sleep summary")
	return e.show(SleepSummaryFrame())
}

// Hibernate puts the panel into deep sleep. The image stays on the glass.
func (e *EPD) Hibernate() error {
	if e.sleeping {
		return nil
	}
	if err := e.panel.Sleep(); err != nil {
		return fmt.Errorf("display sleep: %w", err)
	}
	e.sleeping = true
	e.logger.Info("display hibernated")
	return nil
}

// Close halts the panel and releases the SPI port.
func (e *EPD) Close() error {
	err := e.panel.Halt()
	if e.port != nil {
		if cerr := e.port.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (e *EPD) show(frame *image.Gray) error {
	if e.sleeping {
		if err := e.panel.Init(); err != nil {
			return fmt.Errorf("display wake: %w", err)
		}
		e.sleeping = false
	}

	bounds := e.panel.Bounds()
	img := image1bit.NewVerticalLSB(bounds)
	draw.Draw(img, img.Bounds(), LandscapeToPortrait(frame), image.Point{}, draw.Src)
	if err := e.panel.Draw(bounds, img, image.Point{}); err != nil {
		return fmt.Errorf("display draw: %w", err)
	}
	return nil
}

// LandscapeToPortrait rotates a Width x Height frame a quarter turn
// clockwise into the panel's native Height x Width orientation.
func LandscapeToPortrait(src *image.Gray) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, Height, Width))
	for y := 0; y < Width; y++ {
		for x := 0; x < Height; x++ {
			dst.SetGray(x, y, src.GrayAt(y, Height-1-x))
		}
	}
	return dst
}
