// Package config loads runtime settings from the environment.
// An optional .env file in the working directory is read first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the device.
type Config struct {
	// Storage
	HistoryPath     string // persistent history database
	RetainedPath    string // boot count and screen mode, kept on tmpfs
	HistoryCapacity int

	// Session timings
	InactivityTimeout time.Duration
	TimerWake         time.Duration
	MeasureWindow     time.Duration
	PollInterval      time.Duration

	// Hardware
	GPIOChip  string
	TapPin    int    // BCM pin wired to the accelerometer interrupt
	I2CBus    string // "" selects the first bus
	SPIPort   string // "" selects the first port
	SysRoot   string // sysfs mount point
	WakeupDev string // sysfs power/wakeup attribute of the tap wake source

	// Telemetry and status
	Broker   string // "" disables MQTT
	HTTPAddr string // "" disables the status server

	LogLevel       string
	LogDevelopment bool
}

// Defaults returns the production configuration.
func Defaults() Config {
	return Config{
		HistoryPath:       "/var/lib/wrist-hr/history.db",
		RetainedPath:      "/run/wrist-hr/retained.db",
		HistoryCapacity:   48,
		InactivityTimeout: 60 * time.Second,
		TimerWake:         5 * time.Minute,
		MeasureWindow:     15 * time.Second,
		PollInterval:      100 * time.Millisecond,
		GPIOChip:          "gpiochip0",
		TapPin:            17,
		SysRoot:           "/sys",
		WakeupDev:         "/sys/devices/platform/tap-key/power/wakeup",
		LogLevel:          "info",
	}
}

// Environment variable names.
const (
	EnvHistoryPath       = "WRIST_HISTORY_PATH"
	EnvRetainedPath      = "WRIST_RETAINED_PATH"
	EnvHistoryCapacity   = "WRIST_HISTORY_CAPACITY"
	EnvInactivityTimeout = "WRIST_INACTIVITY_TIMEOUT"
	EnvTimerWake         = "WRIST_TIMER_WAKE"
	EnvMeasureWindow     = "WRIST_MEASURE_WINDOW"
	EnvPollInterval      = "WRIST_POLL_INTERVAL"
	EnvGPIOChip          = "WRIST_GPIO_CHIP"
	EnvTapPin            = "WRIST_TAP_PIN"
	EnvI2CBus            = "WRIST_I2C_BUS"
	EnvSPIPort           = "WRIST_SPI_PORT"
	EnvSysRoot           = "WRIST_SYS_ROOT"
	EnvWakeupDev         = "WRIST_WAKEUP_DEV"
	EnvBroker            = "WRIST_MQTT_BROKER"
	EnvHTTPAddr          = "WRIST_HTTP_ADDR"
	EnvLogLevel          = "WRIST_LOG_LEVEL"
	EnvLogDevelopment    = "WRIST_LOG_DEVELOPMENT"
)

// Load reads .env (if present) and then the WRIST_* environment variables
// over the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv applies WRIST_* variables to the defaults. The first malformed
// value is reported.
func FromEnv() (Config, error) {
	c := Defaults()
	p := &parser{}

	c.HistoryPath = getEnv(EnvHistoryPath, c.HistoryPath)
	c.RetainedPath = getEnv(EnvRetainedPath, c.RetainedPath)
	c.HistoryCapacity = p.int(EnvHistoryCapacity, c.HistoryCapacity)
	c.InactivityTimeout = p.duration(EnvInactivityTimeout, c.InactivityTimeout)
	c.TimerWake = p.duration(EnvTimerWake, c.TimerWake)
	c.MeasureWindow = p.duration(EnvMeasureWindow, c.MeasureWindow)
	c.PollInterval = p.duration(EnvPollInterval, c.PollInterval)
	c.GPIOChip = getEnv(EnvGPIOChip, c.GPIOChip)
	c.TapPin = p.int(EnvTapPin, c.TapPin)
	c.I2CBus = getEnv(EnvI2CBus, c.I2CBus)
	c.SPIPort = getEnv(EnvSPIPort, c.SPIPort)
	c.SysRoot = getEnv(EnvSysRoot, c.SysRoot)
	c.WakeupDev = getEnv(EnvWakeupDev, c.WakeupDev)
	c.Broker = getEnv(EnvBroker, c.Broker)
	c.HTTPAddr = getEnv(EnvHTTPAddr, c.HTTPAddr)
	c.LogLevel = getEnv(EnvLogLevel, c.LogLevel)
	c.LogDevelopment = p.bool(EnvLogDevelopment, c.LogDevelopment)

	if p.err != nil {
		return Config{}, p.err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the session cannot run with.
func (c Config) Validate() error {
	if c.HistoryCapacity < 1 || c.HistoryCapacity > 256 {
		return fmt.Errorf("history capacity %d out of range 1..256", c.HistoryCapacity)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.InactivityTimeout <= 0 {
		return fmt.Errorf("inactivity timeout must be positive, got %v", c.InactivityTimeout)
	}
	if c.TimerWake < time.Second {
		return fmt.Errorf("timer wake must be at least 1s, got %v", c.TimerWake)
	}
	if c.MeasureWindow < 0 {
		return fmt.Errorf("measure window must not be negative, got %v", c.MeasureWindow)
	}
	if c.TapPin < 0 {
		return fmt.Errorf("tap pin must not be negative, got %d", c.TapPin)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first conversion error so FromEnv reads top to bottom.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, value, err)
	}
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return n
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return d
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return b
}
