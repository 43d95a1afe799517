// Package display renders the three watch screens onto the e-paper panel.
//
// Frames are composed in landscape on an 8-bit gray canvas (layout.go) and
// converted to the panel's 1-bit portrait buffer by the EPD renderer.
package display

import "errors"

// Renderer draws one screen per call. Implementations keep the panel awake
// between renders and power it down on Hibernate.
type Renderer interface {
	RenderDashboard(bpm uint8, volts float64, buildingHistory bool) error
	RenderGraph(samples []uint8) error
	RenderSleepSummary() error
	Hibernate() error
}

// ErrInitFailed is wrapped by OpenEPD when the panel cannot be brought up.
var ErrInitFailed = errors.New("display init failed")

// Landscape canvas size.
const (
	Width  = 250
	Height = 122
)

// Battery gauge range.
const (
	BatteryEmpty = 3.6
	BatteryFull  = 4.2
)

// Graph range and gridlines.
const (
	GraphMinBPM  = 40
	GraphMaxBPM  = 180
	GridStepBPM  = 20
	gridFirstBPM = 60
	gridLastBPM  = 160
)
