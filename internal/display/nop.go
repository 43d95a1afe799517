package display

import "go.uber.org/zap"

// Nop stands in for a panel that failed to initialise. Every call logs and
// succeeds so the wake cycle proceeds unchanged.
type Nop struct {
	Logger *zap.Logger
}

// RenderDashboard logs the reading.
func (n Nop) RenderDashboard(bpm uint8, volts float64, buildingHistory bool) error {
	n.Logger.Debug("no display: dashboard", zap.Uint8("bpm", bpm), zap.Float64("volts", volts))
	return nil
}

// RenderGraph logs the slot count.
func (n Nop) RenderGraph(samples []uint8) error {
	n.Logger.Debug("no display: graph", zap.Int("slots", len(samples)))
	return nil
}

// RenderSleepSummary logs.
func (n Nop) RenderSleepSummary() error {
	n.Logger.Debug("no display: sleep summary")
	return nil
}

// Hibernate does nothing.
func (n Nop) Hibernate() error {
	return nil
}
