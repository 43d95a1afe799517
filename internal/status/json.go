package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	BootCount     uint32      `json:"boot_count"`
	Screen        string      `json:"screen"`
	Cycles        int         `json:"cycles"`
	LastCycle     *CycleJSON  `json:"last_cycle,omitempty"`
	History       HistoryJSON `json:"history"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Config        ConfigJSON  `json:"config"`
}

// CycleJSON is the JSON representation of the last wake cycle.
type CycleJSON struct {
	ID           string  `json:"cycle_id"`
	WakeReason   string  `json:"wake_reason"`
	State        string  `json:"state"`
	BPM          int     `json:"bpm"`
	BatteryVolts float64 `json:"battery_volts"`
	Stored       bool    `json:"stored"`
	Screen       string  `json:"screen"`
	Renders      int     `json:"renders"`
	DurationMs   int64   `json:"duration_ms"`
	Finished     string  `json:"finished"`
}

// HistoryJSON is the JSON representation of the rolling history.
type HistoryJSON struct {
	Count      int     `json:"count"`
	Capacity   int     `json:"capacity"`
	Samples    []int   `json:"samples"`
	LastUpdate *string `json:"last_update"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	InactivityTimeoutMs int64  `json:"inactivity_timeout_ms"`
	TimerWakeMs         int64  `json:"timer_wake_ms"`
	MeasureWindowMs     int64  `json:"measure_window_ms"`
	PollMs              int64  `json:"poll_ms"`
	HistoryCapacity     int    `json:"history_capacity"`
	Broker              string `json:"broker"`
	HTTPAddr            string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	// samples as ints so JSON shows numbers rather than base64
	samples := make([]int, len(snap.History))
	for i, v := range snap.History {
		samples[i] = int(v)
	}

	inner := StatusInner{
		BootCount:     snap.BootCount,
		Screen:        snap.Screen.String(),
		Cycles:        snap.Cycles,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		History: HistoryJSON{
			Count:    snap.HistoryCount,
			Capacity: snap.Config.HistoryCapacity,
			Samples:  samples,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			InactivityTimeoutMs: snap.Config.InactivityTimeoutMs,
			TimerWakeMs:         snap.Config.TimerWakeMs,
			MeasureWindowMs:     snap.Config.MeasureWindowMs,
			PollMs:              snap.Config.PollMs,
			HistoryCapacity:     snap.Config.HistoryCapacity,
			Broker:              snap.Config.Broker,
			HTTPAddr:            snap.Config.HTTPAddr,
		},
	}
	if !snap.LastReading.IsZero() {
		ts := snap.LastReading.UTC().Format(time.RFC3339)
		inner.History.LastUpdate = &ts
	}
	if c := snap.LastCycle; c != nil {
		inner.LastCycle = &CycleJSON{
			ID:           c.ID,
			WakeReason:   string(c.Reason),
			State:        string(c.State),
			BPM:          int(c.BPM),
			BatteryVolts: float64(int64(c.Volts*100+0.5)) / 100,
			Stored:       c.Stored,
			Screen:       c.Screen.String(),
			Renders:      c.Renders,
			DurationMs:   c.Duration.Milliseconds(),
			Finished:     c.Finished.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
