// Package session runs one wake cycle of the watch: classify the wake,
// measure, render, handle navigation taps, then arm both wake sources and
// suspend.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/wrist-hr/internal/display"
	"github.com/sweeney/wrist-hr/internal/history"
	"github.com/sweeney/wrist-hr/internal/kv"
	"github.com/sweeney/wrist-hr/internal/logic"
	"github.com/sweeney/wrist-hr/internal/power"
	"github.com/sweeney/wrist-hr/internal/sensor"
	"github.com/sweeney/wrist-hr/internal/state"
)

// Config holds the cycle timings.
type Config struct {
	InactivityTimeout time.Duration
	MeasureWindow     time.Duration
	PollInterval      time.Duration
	TimerWake         time.Duration
	TapPin            int
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		InactivityTimeout: 60 * time.Second,
		MeasureWindow:     sensor.DefaultMeasureWindow,
		PollInterval:      100 * time.Millisecond,
		TimerWake:         power.DefaultTimerWake,
		TapPin:            17,
	}
}

// Observer is told about each cycle before the device suspends.
type Observer interface {
	CycleDone(r Report)
}

// Deps are the collaborators of a Controller. Observer and Clock are optional.
type Deps struct {
	Sensors  sensor.Adapter
	Display  display.Renderer
	Power    power.Controller
	History  *history.Store
	Retained kv.Storage
	Observer Observer
	Clock    Clock
	Logger   *zap.Logger
}

// Controller owns the retained state and drives wake cycles.
// It is not safe for concurrent use.
type Controller struct {
	cfg      Config
	deps     Deps
	clock    Clock
	logger   *zap.Logger
	retained logic.Retained
	state    logic.SessionState
}

// New loads the retained state and returns a Controller. An unreadable
// retained store starts from the zero state.
func New(cfg Config, d Deps) (*Controller, error) {
	if d.Sensors == nil || d.Display == nil || d.Power == nil || d.History == nil || d.Retained == nil {
		return nil, errors.New("session: missing dependency")
	}
	if d.Clock == nil {
		d.Clock = WallClock()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	c := &Controller{cfg: cfg, deps: d, clock: d.Clock, logger: d.Logger, state: logic.Idle}

	r, err := state.Load(d.Retained)
	if err != nil {
		c.logger.Warn("retained state unreadable, starting fresh", zap.Error(err))
	} else {
		c.retained = r
	}
	return c, nil
}

// State returns Idle outside RunCycle and the running session's state inside it.
func (c *Controller) State() logic.SessionState {
	return c.state
}

// Retained returns the current retained state.
func (c *Controller) Retained() logic.Retained {
	return c.retained
}

// RunCycle classifies cause, runs the matching session and always finishes
// with the shutdown sequence. It returns after Suspend returns.
// Cancelling ctx cuts the interactive loop short; shutdown still runs.
func (c *Controller) RunCycle(ctx context.Context, cause logic.WakeCause) Report {
	rep := Report{
		CycleID: uuid.NewString(),
		Cause:   cause,
		Started: c.clock.Now(),
	}
	log := c.logger.With(zap.String("cycle", rep.CycleID))

	rep.Reason = logic.Classify(cause, &c.retained)
	c.saveRetained(log)
	rep.State = logic.StateFor(rep.Reason)
	c.state = rep.State
	rep.BootCount = c.retained.BootCount

	log.Info("wake",
		zap.Stringer("cause", cause),
		zap.String("reason", string(rep.Reason)),
		zap.String("state", string(rep.State)),
		zap.Uint32("boot_count", c.retained.BootCount),
		zap.Stringer("screen", c.retained.Screen),
		zap.Int("history_count", c.deps.History.Count()))

	if rep.State == logic.InteractiveSession {
		c.interactive(ctx, log, &rep)
	} else {
		c.scheduled(ctx, log, &rep)
	}

	rep.Screen = c.retained.Screen
	rep.HistoryCount = c.deps.History.Count()
	rep.Finished = c.clock.Now()

	log.Info("cycle complete",
		zap.Uint8("bpm", rep.Snapshot.BPM),
		zap.Bool("stored", rep.Stored),
		zap.Int("renders", len(rep.Renders)),
		zap.Int("advances", rep.Advances),
		zap.Duration("awake", rep.Duration()))

	if c.deps.Observer != nil {
		c.deps.Observer.CycleDone(rep)
	}

	c.state = logic.Idle
	rep.SuspendErr = c.shutdown(log)
	return rep
}

func (c *Controller) interactive(ctx context.Context, log *zap.Logger, rep *Report) {
	if rep.Reason == logic.GestureWake {
		c.advance(log, rep)
		c.deps.Sensors.DrainGesture()
	}

	c.measure(ctx, log, rep)
	c.render(log, rep, c.retained.Screen)

	idle := logic.NewInactivity(c.cfg.InactivityTimeout, c.clock.Now())
	for !idle.Expired(c.clock.Now()) {
		if err := ctx.Err(); err != nil {
			log.Info("interactive session cancelled", zap.Error(err))
			return
		}
		if c.deps.Sensors.PollConfirmedGesture() {
			screen := c.advance(log, rep)
			c.render(log, rep, screen)
			idle.Reset(c.clock.Now())
			continue
		}
		c.clock.Sleep(c.cfg.PollInterval)
	}
	log.Debug("inactivity timeout", zap.Time("deadline", idle.Deadline()))
}

func (c *Controller) scheduled(ctx context.Context, log *zap.Logger, rep *Report) {
	c.measure(ctx, log, rep)
	c.render(log, rep, logic.Dashboard)
}

// measure takes the cycle snapshot and appends a valid reading.
func (c *Controller) measure(ctx context.Context, log *zap.Logger, rep *Report) {
	bpm := c.deps.Sensors.MeasureHeartRate(ctx, c.cfg.MeasureWindow)
	volts := c.deps.Sensors.ReadBatteryVoltage()
	rep.Snapshot = logic.Snapshot{BPM: bpm, Volts: volts, Taken: c.clock.Now()}

	if bpm == 0 {
		log.Info("no heart rate reading, history unchanged")
		return
	}
	if err := c.deps.History.Append(bpm); err != nil {
		log.Error("store reading failed", zap.Error(err))
		return
	}
	rep.Stored = true
}

func (c *Controller) advance(log *zap.Logger, rep *Report) logic.ScreenMode {
	screen := c.retained.Advance()
	c.saveRetained(log)
	rep.Advances++
	log.Info("screen advanced", zap.Stringer("screen", screen))
	return screen
}

func (c *Controller) render(log *zap.Logger, rep *Report, screen logic.ScreenMode) {
	var err error
	switch screen {
	case logic.Graph:
		err = c.deps.Display.RenderGraph(c.deps.History.Chronological())
	case logic.SleepSummary:
		err = c.deps.Display.RenderSleepSummary()
	default:
		screen = logic.Dashboard
		err = c.deps.Display.RenderDashboard(rep.Snapshot.BPM, rep.Snapshot.Volts, !c.deps.History.IsFull())
	}
	rep.Renders = append(rep.Renders, screen)
	if err != nil {
		log.Error("render failed", zap.Stringer("screen", screen), zap.Error(err))
	}
}

// shutdown is identical for every cycle. Each step runs even if an
// earlier one failed. Only the Suspend error is returned.
func (c *Controller) shutdown(log *zap.Logger) error {
	if err := c.deps.Sensors.Shutdown(); err != nil {
		log.Warn("sensor shutdown failed", zap.Error(err))
	}
	if err := c.deps.Display.Hibernate(); err != nil {
		log.Warn("display hibernate failed", zap.Error(err))
	}
	if err := c.deps.Power.ArmTimerWake(c.cfg.TimerWake); err != nil {
		log.Error("arm timer wake failed", zap.Error(err))
	}
	if err := c.deps.Power.ArmGestureWake(c.cfg.TapPin); err != nil {
		log.Error("arm gesture wake failed", zap.Error(err))
	}
	if err := c.deps.Power.Suspend(); err != nil {
		log.Error("suspend failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *Controller) saveRetained(log *zap.Logger) {
	if err := state.Save(c.deps.Retained, c.retained); err != nil {
		log.Warn("persist retained state failed", zap.Error(err))
	}
}
