package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/wrist-hr/internal/config"
	"github.com/sweeney/wrist-hr/internal/display"
	"github.com/sweeney/wrist-hr/internal/history"
	"github.com/sweeney/wrist-hr/internal/kv"
	"github.com/sweeney/wrist-hr/internal/logic"
	"github.com/sweeney/wrist-hr/internal/mqtt"
	"github.com/sweeney/wrist-hr/internal/power"
	"github.com/sweeney/wrist-hr/internal/sensor"
	"github.com/sweeney/wrist-hr/internal/session"
	"github.com/sweeney/wrist-hr/internal/status"
	"github.com/sweeney/wrist-hr/internal/web"
)

// device is everything one process brings up. Hardware that fails to open is
// replaced by a degraded stand-in; nothing here is fatal.
type device struct {
	logger    *zap.Logger
	sensors   sensor.Adapter
	display   display.Renderer
	power     power.Controller
	histKV    kv.Storage
	retained  kv.Storage
	tracker   *status.Tracker
	telemetry *telemetry
	ctrl      *session.Controller

	closers []func() error
}

func openDevice(cfg config.Config, logger *zap.Logger, powerFor func(*sensor.Suite) power.Controller) *device {
	d := &device{logger: logger}

	suite, err := sensor.Open(sensor.Options{
		I2CBus:   cfg.I2CBus,
		GPIOChip: cfg.GPIOChip,
		TapPin:   cfg.TapPin,
	}, logger.Named("sensor"))
	if err != nil {
		logger.Error("sensor init incomplete, continuing with what is available", zap.Error(err))
	}
	d.sensors = suite
	d.closers = append(d.closers, suite.Close)

	renderer, closeDisplay := displayFor(cfg.SPIPort, logger)
	d.display = renderer
	d.closers = append(d.closers, closeDisplay)

	d.power = powerFor(suite)

	d.histKV = openStorage(cfg.HistoryPath, logger.Named("storage"))
	d.retained = openStorage(cfg.RetainedPath, logger.Named("storage"))
	d.closers = append(d.closers, d.histKV.Close, d.retained.Close)

	d.tracker = status.NewTracker(time.Now(), status.Config{
		InactivityTimeoutMs: cfg.InactivityTimeout.Milliseconds(),
		TimerWakeMs:         cfg.TimerWake.Milliseconds(),
		MeasureWindowMs:     cfg.MeasureWindow.Milliseconds(),
		PollMs:              cfg.PollInterval.Milliseconds(),
		HistoryCapacity:     cfg.HistoryCapacity,
		Broker:              cfg.Broker,
		HTTPAddr:            cfg.HTTPAddr,
	})

	d.telemetry = &telemetry{tracker: d.tracker, logger: logger.Named("telemetry")}
	if cfg.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.Broker, "wrist-hr-"+uuid.NewString()[:8], logger.Named("mqtt"))
		if err != nil {
			logger.Error("mqtt unavailable, telemetry disabled", zap.Error(err))
		} else {
			d.telemetry.publisher = pub
			d.telemetry.conn = pub
			d.closers = append(d.closers, pub.Close)
		}
	}

	return d
}

// buildController opens the history ring and the session controller. A
// history that cannot be loaded is replaced by a volatile one so the device
// still measures and sleeps.
func (d *device) buildController(cfg config.Config) error {
	h, err := history.Open(d.histKV, cfg.HistoryCapacity, time.Now, d.logger.Named("history"))
	if err != nil {
		d.logger.Error("history unavailable, readings will not survive power loss", zap.Error(err))
		d.histKV = kv.NewMemStorage()
		if h, err = history.Open(d.histKV, cfg.HistoryCapacity, time.Now, d.logger.Named("history")); err != nil {
			return err
		}
	}
	d.telemetry.history = h

	ctrl, err := session.New(session.Config{
		InactivityTimeout: cfg.InactivityTimeout,
		MeasureWindow:     cfg.MeasureWindow,
		PollInterval:      cfg.PollInterval,
		TimerWake:         cfg.TimerWake,
		TapPin:            cfg.TapPin,
	}, session.Deps{
		Sensors:  d.sensors,
		Display:  d.display,
		Power:    d.power,
		History:  h,
		Retained: d.retained,
		Observer: d.telemetry,
		Logger:   d.logger.Named("session"),
	})
	if err != nil {
		return err
	}
	d.ctrl = ctrl

	d.tracker.SetRetained(ctrl.Retained())
	d.tracker.SetHistory(h.Chronological(), h.Count(), h.LastUpdate())
	return nil
}

// startHTTP serves the status page while the process is awake.
func (d *device) startHTTP(addr string) {
	if addr == "" {
		return
	}
	srv := web.New(addr, d.tracker)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("http server error", zap.Error(err))
		}
	}()
	d.closers = append(d.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	d.logger.Info("http status server listening", zap.String("addr", addr))
}

// Close releases everything in reverse order of acquisition.
func (d *device) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// telemetry mirrors each cycle into the status tracker and, when a broker is
// configured, publishes it. It is the session Observer.
type telemetry struct {
	publisher mqtt.Publisher        // nil: MQTT disabled
	conn      mqtt.ConnectionStatus // nil: MQTT disabled
	tracker   *status.Tracker
	history   *history.Store
	logger    *zap.Logger
}

// Wake publishes the WAKE system event ahead of a cycle.
func (t *telemetry) Wake(cause logic.WakeCause) {
	if t.publisher == nil {
		return
	}
	t.refreshConnection()
	snap := t.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "WAKE",
		Reason:     cause.String(),
		RawPayload: status.FormatStatusEvent(snap, "WAKE", cause.String()),
	}
	if err := t.publisher.PublishSystem(event); err != nil {
		t.logger.Warn("publish wake event failed", zap.Error(err))
	}
}

// CycleDone records the cycle and publishes the reading and a SLEEP event.
func (t *telemetry) CycleDone(r session.Report) {
	t.tracker.RecordCycle(cycleFromReport(r), r.BootCount)
	if t.history != nil {
		t.tracker.SetHistory(t.history.Chronological(), t.history.Count(), t.history.LastUpdate())
	}
	if t.publisher == nil {
		return
	}
	t.refreshConnection()

	if m, ok := r.Measurement(); ok {
		if err := t.publisher.Publish(m); err != nil {
			t.logger.Warn("publish reading failed", zap.Error(err))
		}
	}

	snap := t.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SLEEP",
		Reason:     string(r.Reason),
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SLEEP", string(r.Reason)),
	}
	if err := t.publisher.PublishSystem(event); err != nil {
		t.logger.Warn("publish sleep event failed", zap.Error(err))
	}
}

func (t *telemetry) refreshConnection() {
	if t.conn != nil {
		t.tracker.SetMQTTConnected(t.conn.IsConnected())
	}
}

func cycleFromReport(r session.Report) status.Cycle {
	return status.Cycle{
		ID:       r.CycleID,
		Reason:   r.Reason,
		State:    r.State,
		BPM:      r.Snapshot.BPM,
		Volts:    r.Snapshot.Volts,
		Stored:   r.Stored,
		Screen:   r.Screen,
		Renders:  len(r.Renders),
		Duration: r.Duration(),
		Finished: r.Finished,
	}
}
