package display

import "github.com/sweeney/wrist-hr/internal/logic"

// Render records one Render* call.
type Render struct {
	Screen          logic.ScreenMode
	BPM             uint8
	Volts           float64
	BuildingHistory bool
	Samples         []uint8
}

// FakeRenderer is a test double that records renders.
type FakeRenderer struct {
	Renders    []Render
	Hibernates int

	// Err, if set, will be returned by every Render* call.
	Err error

	// Trace, if set, receives the name of each call.
	Trace func(call string)
}

// RenderDashboard records a dashboard render.
func (f *FakeRenderer) RenderDashboard(bpm uint8, volts float64, buildingHistory bool) error {
	f.trace("render.dashboard")
	f.Renders = append(f.Renders, Render{Screen: logic.Dashboard, BPM: bpm, Volts: volts, BuildingHistory: buildingHistory})
	return f.Err
}

// RenderGraph records a graph render with a copy of samples.
func (f *FakeRenderer) RenderGraph(samples []uint8) error {
	f.trace("render.graph")
	f.Renders = append(f.Renders, Render{Screen: logic.Graph, Samples: append([]uint8(nil), samples...)})
	return f.Err
}

// RenderSleepSummary records a sleep summary render.
func (f *FakeRenderer) RenderSleepSummary() error {
	f.trace("render.sleep")
	f.Renders = append(f.Renders, Render{Screen: logic.SleepSummary})
	return f.Err
}

// Hibernate counts calls.
func (f *FakeRenderer) Hibernate() error {
	f.trace("display.hibernate")
	f.Hibernates++
	return nil
}

// Screens returns the screen of each render in order.
func (f *FakeRenderer) Screens() []logic.ScreenMode {
	out := make([]logic.ScreenMode, len(f.Renders))
	for i, r := range f.Renders {
		out[i] = r.Screen
	}
	return out
}

func (f *FakeRenderer) trace(call string) {
	if f.Trace != nil {
		f.Trace(call)
	}
}
