// Package mqtt publishes heart-rate telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/wrist-hr/internal/logic"
)

// TopicMeasurements is the MQTT topic for stored heart-rate readings.
const TopicMeasurements = "wrist/hr/measurements"

// TopicSystem is the MQTT topic for wake/sleep lifecycle events.
const TopicSystem = "wrist/hr/system"

// Publisher publishes telemetry to MQTT.
type Publisher interface {
	// Publish sends a heart-rate reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(m logic.Measurement) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., wake, sleep).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "WAKE", "SLEEP"
	Reason     string // wake reason, e.g. "TIMER", "TAP", "BOOT"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	HeartRate HeartRatePayload `json:"heart_rate"`
}

// HeartRatePayload contains one stored reading.
type HeartRatePayload struct {
	Timestamp    string  `json:"timestamp"`
	CycleID      string  `json:"cycle_id"`
	WakeReason   string  `json:"wake_reason"`
	BPM          int     `json:"bpm"`
	BatteryVolts float64 `json:"battery_volts"`
	HistoryCount int     `json:"history_count"`
}

// FormatPayload creates the JSON payload for a reading.
func FormatPayload(m logic.Measurement) ([]byte, error) {
	payload := Payload{
		HeartRate: HeartRatePayload{
			Timestamp:    m.Timestamp.UTC().Format(time.RFC3339),
			CycleID:      m.CycleID,
			WakeReason:   string(m.Reason),
			BPM:          int(m.BPM),
			BatteryVolts: roundVolts(m.Volts),
			HistoryCount: m.HistoryCount,
		},
	}
	return json.Marshal(payload)
}

// roundVolts keeps two decimals, the resolution shown on the dashboard.
func roundVolts(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
