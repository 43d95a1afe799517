// Command wrist-hr runs the wake cycles of a wrist heart-rate monitor: measure,
// show, store, then suspend until the next timer or tap wake.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeney/wrist-hr/internal/config"
	"github.com/sweeney/wrist-hr/internal/display"
	"github.com/sweeney/wrist-hr/internal/history"
	"github.com/sweeney/wrist-hr/internal/kv"
	"github.com/sweeney/wrist-hr/internal/logging"
	"github.com/sweeney/wrist-hr/internal/logic"
	"github.com/sweeney/wrist-hr/internal/power"
	"github.com/sweeney/wrist-hr/internal/sensor"
	"github.com/sweeney/wrist-hr/internal/session"
	"github.com/sweeney/wrist-hr/internal/state"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// flagValues are the CLI overrides applied on top of the environment.
type flagValues struct {
	historyPath  string
	retainedPath string
	broker       string
	httpAddr     string
	logLevel     string
	development  bool
	tapPin       int
	timeout      time.Duration
	timerWake    time.Duration
}

func newRootCmd() *cobra.Command {
	var fv flagValues

	root := &cobra.Command{
		Use:   "wrist-hr",
		Short: "Wrist heart-rate monitor",
		Long: `wrist-hr measures heart rate on every wake, keeps a rolling four-hour
history and shows it on an e-paper display. Between wakes the device
suspends to RAM and is woken by the RTC timer or a double tap.

Settings come from WRIST_* environment variables (and an optional .env
file); flags override them.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, &fv)
		},
	}

	addFlags(root, &fv)

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run wake cycles until interrupted (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDaemon(cmd, &fv)
			},
		},
		newOnceCmd(&fv),
		&cobra.Command{
			Use:   "history",
			Short: "Print the stored heart-rate history, oldest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStores(cmd, &fv, func(h *history.Store, _ kv.Storage) error {
					printHistory(cmd.OutOrStdout(), h)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear-history",
			Short: "Erase every stored reading",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStores(cmd, &fv, func(h *history.Store, _ kv.Storage) error {
					if err := h.Clear(); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "print-state",
			Short: "Print retained state and a history summary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStores(cmd, &fv, func(h *history.Store, retained kv.Storage) error {
					r, err := state.Load(retained)
					if err != nil {
						return err
					}
					printState(cmd.OutOrStdout(), r, h)
					return nil
				})
			},
		},
	)

	return root
}

// addFlags registers the config overrides as persistent flags of cmd.
func addFlags(cmd *cobra.Command, fv *flagValues) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&fv.historyPath, "history-db", "", "history database path")
	pf.StringVar(&fv.retainedPath, "retained-db", "", "retained state database path")
	pf.StringVar(&fv.broker, "broker", "", "MQTT broker address (empty disables telemetry)")
	pf.StringVar(&fv.httpAddr, "http", "", "HTTP status address (empty disables)")
	pf.StringVar(&fv.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&fv.development, "dev", false, "human-readable console logs")
	pf.IntVar(&fv.tapPin, "tap-pin", 0, "BCM pin wired to the accelerometer interrupt")
	pf.DurationVar(&fv.timeout, "timeout", 0, "inactivity timeout of an interactive session")
	pf.DurationVar(&fv.timerWake, "timer-wake", 0, "interval between scheduled measurements")
}

func newOnceCmd(fv *flagValues) *cobra.Command {
	var causeName string
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single cycle without suspending (bench testing)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cause, err := parseCause(causeName)
			if err != nil {
				return err
			}
			return runOnce(cmd, fv, cause)
		},
	}
	cmd.Flags().StringVar(&causeName, "cause", "boot", "wake cause to simulate: boot, timer or tap")
	return cmd
}

// loadConfig reads the environment and applies every flag the user set.
func loadConfig(cmd *cobra.Command, fv *flagValues) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("history-db") {
		cfg.HistoryPath = fv.historyPath
	}
	if f.Changed("retained-db") {
		cfg.RetainedPath = fv.retainedPath
	}
	if f.Changed("broker") {
		cfg.Broker = fv.broker
	}
	if f.Changed("http") {
		cfg.HTTPAddr = fv.httpAddr
	}
	if f.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if f.Changed("dev") {
		cfg.LogDevelopment = fv.development
	}
	if f.Changed("tap-pin") {
		cfg.TapPin = fv.tapPin
	}
	if f.Changed("timeout") {
		cfg.InactivityTimeout = fv.timeout
	}
	if f.Changed("timer-wake") {
		cfg.TimerWake = fv.timerWake
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setup(cmd *cobra.Command, fv *flagValues) (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd, fv)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

func runDaemon(cmd *cobra.Command, fv *flagValues) error {
	cfg, logger, err := setup(cmd, fv)
	if err != nil {
		return err
	}
	defer logger.Sync()

	dev := openDevice(cfg, logger, func(s *sensor.Suite) power.Controller {
		var gesture power.GestureSource
		if s.TapLine != nil {
			gesture = s.TapLine
		}
		return power.NewSysfsController(cfg.SysRoot, cfg.WakeupDev, gesture, logger.Named("power"))
	})
	defer dev.Close()

	if err := dev.buildController(cfg); err != nil {
		return err
	}
	dev.startHTTP(cfg.HTTPAddr)

	logger.Info("started",
		zap.String("version", version),
		zap.Duration("timer_wake", cfg.TimerWake),
		zap.Duration("inactivity_timeout", cfg.InactivityTimeout),
		zap.Int("history_capacity", cfg.HistoryCapacity),
		zap.String("broker", cfg.Broker))

	cycles := runLoop(cmd.Context(), dev.ctrl, dev.power, dev.telemetry, cfg.TimerWake, logger)
	logger.Info("stopped", zap.Int("cycles", cycles))
	return nil
}

func runOnce(cmd *cobra.Command, fv *flagValues, cause logic.WakeCause) error {
	cfg, logger, err := setup(cmd, fv)
	if err != nil {
		return err
	}
	defer logger.Sync()

	dev := openDevice(cfg, logger, func(*sensor.Suite) power.Controller {
		return power.DryRun{Cause: cause, Logger: logger.Named("power")}
	})
	defer dev.Close()

	if err := dev.buildController(cfg); err != nil {
		return err
	}

	dev.telemetry.Wake(cause)
	rep := dev.ctrl.RunCycle(cmd.Context(), dev.power.WakeCause())
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

// cycleRunner is satisfied by *session.Controller.
type cycleRunner interface {
	RunCycle(ctx context.Context, cause logic.WakeCause) session.Report
}

// runLoop runs cycles back to back until ctx is done. Each RunCycle returns
// after the device resumes. When suspend is unavailable the loop waits out
// the timer wake itself and continues as if the alarm had fired.
func runLoop(ctx context.Context, ctrl cycleRunner, pwr power.Controller, tel *telemetry, timerWake time.Duration, logger *zap.Logger) int {
	cycles := 0
	awake := false
	for ctx.Err() == nil {
		cause := logic.CauseTimer
		if !awake {
			cause = pwr.WakeCause()
		}

		tel.Wake(cause)
		rep := ctrl.RunCycle(ctx, cause)
		cycles++

		awake = rep.SuspendErr != nil
		if awake {
			logger.Warn("suspend unavailable, staying awake until the timer wake",
				zap.Duration("wait", timerWake), zap.Error(rep.SuspendErr))
			select {
			case <-ctx.Done():
			case <-time.After(timerWake):
			}
		}
	}
	return cycles
}

// parseCause maps a CLI name to the wake cause the platform would report.
func parseCause(name string) (logic.WakeCause, error) {
	switch strings.ToLower(name) {
	case "boot", "cold", "undefined":
		return logic.CauseUndefined, nil
	case "timer":
		return logic.CauseTimer, nil
	case "tap", "gesture", "gpio":
		return logic.CauseGPIO, nil
	}
	return 0, fmt.Errorf("unknown wake cause %q (want boot, timer or tap)", name)
}

// withStores opens both databases without touching any hardware. Storage
// errors are returned, not masked: these commands inspect what is on disk.
func withStores(cmd *cobra.Command, fv *flagValues, fn func(h *history.Store, retained kv.Storage) error) error {
	cfg, logger, err := setup(cmd, fv)
	if err != nil {
		return err
	}
	defer logger.Sync()

	histKV, err := kv.OpenBolt(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer histKV.Close()

	retained, err := kv.OpenBolt(cfg.RetainedPath)
	if err != nil {
		return err
	}
	defer retained.Close()

	h, err := history.Open(histKV, cfg.HistoryCapacity, time.Now, logger.Named("history"))
	if err != nil {
		return err
	}
	return fn(h, retained)
}

// openStorage falls back to volatile memory when the database cannot be
// opened so the device keeps measuring and displaying.
func openStorage(path string, logger *zap.Logger) kv.Storage {
	s, err := kv.OpenBolt(path)
	if err != nil {
		logger.Error("storage unavailable, readings will not survive power loss",
			zap.String("path", path), zap.Error(err))
		return kv.NewMemStorage()
	}
	return s
}

func printHistory(w io.Writer, h *history.Store) {
	samples := h.Chronological()
	fmt.Fprintf(w, "%d/%d readings", h.Count(), h.Capacity())
	if last := h.LastUpdate(); !last.IsZero() {
		fmt.Fprintf(w, ", last at %s", last.UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(w)
	for i, v := range samples {
		if v == 0 {
			fmt.Fprintf(w, "%2d  --\n", i)
			continue
		}
		fmt.Fprintf(w, "%2d  %d\n", i, v)
	}
}

func printState(w io.Writer, r logic.Retained, h *history.Store) {
	fmt.Fprintf(w, "boot count: %d\n", r.BootCount)
	fmt.Fprintf(w, "screen: %s\n", r.Screen)
	fmt.Fprintf(w, "history: %d/%d", h.Count(), h.Capacity())
	if v, ok := h.Latest(); ok {
		fmt.Fprintf(w, ", latest %d BPM", v)
	}
	fmt.Fprintln(w)
}

func printReport(w io.Writer, rep session.Report) {
	bpm := "--"
	if rep.Snapshot.BPM > 0 {
		bpm = fmt.Sprintf("%d", rep.Snapshot.BPM)
	}
	screens := make([]string, len(rep.Renders))
	for i, s := range rep.Renders {
		screens[i] = s.String()
	}
	fmt.Fprintf(w, "cycle %s: %s %s\n", rep.CycleID, rep.Reason, rep.State)
	fmt.Fprintf(w, "bpm: %s (stored: %t), battery: %.2f V\n", bpm, rep.Stored, rep.Snapshot.Volts)
	fmt.Fprintf(w, "rendered: %s, screen now: %s\n", strings.Join(screens, " > "), rep.Screen)
	fmt.Fprintf(w, "history: %d, awake: %s\n", rep.HistoryCount, rep.Duration().Round(time.Millisecond))
}

// displayFor opens the e-paper panel, falling back to a renderer that only logs.
func displayFor(spiPort string, logger *zap.Logger) (display.Renderer, func() error) {
	epd, err := display.OpenEPD(spiPort, logger.Named("display"))
	if err != nil {
		logger.Error("display unavailable, rendering to log only", zap.Error(err))
		return display.Nop{Logger: logger.Named("display")}, func() error { return nil }
	}
	return epd, epd.Close
}
