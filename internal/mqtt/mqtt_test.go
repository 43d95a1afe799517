package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/wrist-hr/internal/logic"
)

var ts = time.Date(2026, 1, 1, 12, 5, 0, 0, time.UTC)

func reading() logic.Measurement {
	return logic.Measurement{
		Timestamp:    ts,
		CycleID:      "c0ffee",
		Reason:       logic.TimerWake,
		BPM:          72,
		Volts:        3.9149,
		HistoryCount: 12,
	}
}

func TestFormatPayload(t *testing.T) {
	data, err := FormatPayload(reading())
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	hr := parsed.HeartRate
	if hr.Timestamp != "2026-01-01T12:05:00Z" {
		t.Errorf("timestamp: got %q", hr.Timestamp)
	}
	if hr.CycleID != "c0ffee" {
		t.Errorf("cycle_id: got %q", hr.CycleID)
	}
	if hr.WakeReason != "TIMER" {
		t.Errorf("wake_reason: got %q", hr.WakeReason)
	}
	if hr.BPM != 72 {
		t.Errorf("bpm: got %d", hr.BPM)
	}
	if hr.BatteryVolts != 3.91 {
		t.Errorf("battery_volts: got %v, want 3.91", hr.BatteryVolts)
	}
	if hr.HistoryCount != 12 {
		t.Errorf("history_count: got %d", hr.HistoryCount)
	}
}

func TestFormatPayloadKeys(t *testing.T) {
	data, _ := FormatPayload(reading())
	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	inner, ok := raw["heart_rate"]
	if !ok {
		t.Fatalf("missing heart_rate key in %s", data)
	}
	for _, key := range []string{"timestamp", "cycle_id", "wake_reason", "bpm", "battery_volts", "history_count"} {
		if _, ok := inner[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestFormatPayloadLocalTimeIsUTC(t *testing.T) {
	m := reading()
	m.Timestamp = ts.In(time.FixedZone("CET", 3600))
	data, _ := FormatPayload(m)
	var parsed Payload
	json.Unmarshal(data, &parsed)
	if parsed.HeartRate.Timestamp != "2026-01-01T12:05:00Z" {
		t.Errorf("timestamp not normalized: %q", parsed.HeartRate.Timestamp)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	data, err := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "WAKE", Reason: "TAP"})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	var parsed SystemPayload
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.System.Event != "WAKE" || parsed.System.Reason != "TAP" {
		t.Errorf("unexpected payload: %+v", parsed.System)
	}
	if parsed.System.Timestamp != "2026-01-01T12:05:00Z" {
		t.Errorf("timestamp: got %q", parsed.System.Timestamp)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	data, _ := FormatSystemPayload(SystemEvent{Timestamp: ts, Event: "SLEEP"})
	var raw map[string]map[string]interface{}
	json.Unmarshal(data, &raw)
	if _, ok := raw["system"]["reason"]; ok {
		t.Errorf("reason should be omitted: %s", data)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":"ok"}`)
	data, err := FormatSystemPayload(SystemEvent{Event: "SLEEP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("got %s, want raw payload", data)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	if err := f.Publish(reading()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: ts, Event: "SLEEP"}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	if len(f.Measurements) != 1 || f.Measurements[0].BPM != 72 {
		t.Errorf("measurements: %+v", f.Measurements)
	}
	if len(f.Payloads) != 1 {
		t.Errorf("payloads: %d", len(f.Payloads))
	}
	if len(f.SystemEvents) != 1 || len(f.SystemPayloads) != 1 {
		t.Errorf("system events: %d, payloads: %d", len(f.SystemEvents), len(f.SystemPayloads))
	}

	f.Close()
	if !f.Closed {
		t.Error("expected Closed")
	}

	f.Reset()
	if f.Measurements != nil || f.SystemEvents != nil || f.Closed {
		t.Error("Reset should clear recorded state")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.Publish(reading()); err == nil {
		t.Error("expected Publish error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "WAKE"}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(f.Measurements) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakeSatisfiesInterfaces(t *testing.T) {
	var _ Publisher = (*FakePublisher)(nil)
	var _ ConnectionStatus = (*FakePublisher)(nil)
	var _ Publisher = (*RealPublisher)(nil)
	var _ ConnectionStatus = (*RealPublisher)(nil)
}
