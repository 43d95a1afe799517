// Package status provides a thread-safe status tracker for the wrist-hr daemon.
// It is read by the HTTP status page and by the system events published over MQTT.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/wrist-hr/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	InactivityTimeoutMs int64
	TimerWakeMs         int64
	MeasureWindowMs     int64
	PollMs              int64
	HistoryCapacity     int
	Broker              string
	HTTPAddr            string
}

// Cycle summarizes one completed wake cycle. This is a local copy to avoid
// importing internal/session from status.
type Cycle struct {
	ID       string
	Reason   logic.WakeReason
	State    logic.SessionState
	BPM      uint8
	Volts    float64
	Stored   bool
	Screen   logic.ScreenMode
	Renders  int
	Duration time.Duration
	Finished time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type: safe to use after the lock is released.
type Snapshot struct {
	BootCount     uint32
	Screen        logic.ScreenMode
	Cycles        int
	LastCycle     *Cycle
	History       []uint8 // chronological, zero = empty slot
	HistoryCount  int
	LastReading   time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetRetained sets the boot counter and active screen.
func (t *Tracker) SetRetained(r logic.Retained) {
	t.mu.Lock()
	t.snap.BootCount = r.BootCount
	t.snap.Screen = r.Screen
	t.mu.Unlock()
}

// SetHistory replaces the history series. samples is copied.
func (t *Tracker) SetHistory(samples []uint8, count int, lastReading time.Time) {
	cp := append([]uint8(nil), samples...)
	t.mu.Lock()
	t.snap.History = cp
	t.snap.HistoryCount = count
	t.snap.LastReading = lastReading
	t.mu.Unlock()
}

// RecordCycle stores the result of a completed wake cycle.
func (t *Tracker) RecordCycle(c Cycle, bootCount uint32) {
	t.mu.Lock()
	t.snap.LastCycle = &c
	t.snap.Cycles++
	t.snap.BootCount = bootCount
	t.snap.Screen = c.Screen
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastCycle != nil {
		c := *s.LastCycle
		s.LastCycle = &c
	}
	s.History = append([]uint8(nil), s.History...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
