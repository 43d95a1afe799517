package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/wrist-hr/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleCycle() Cycle {
	return Cycle{
		ID:       "c1",
		Reason:   logic.GestureWake,
		State:    logic.InteractiveSession,
		BPM:      68,
		Volts:    3.876,
		Stored:   true,
		Screen:   logic.Graph,
		Renders:  2,
		Duration: 61500 * time.Millisecond,
		Finished: start.Add(10 * time.Minute),
	}
}

func TestNewTracker(t *testing.T) {
	cfg := Config{PollMs: 100, HistoryCapacity: 48, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 100 {
		t.Errorf("Config.PollMs: got %d, want 100", snap.Config.PollMs)
	}
	if snap.LastCycle != nil {
		t.Error("expected no cycle initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestSetRetained(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetRetained(logic.Retained{BootCount: 7, Screen: logic.SleepSummary})

	snap := tr.Snapshot()
	if snap.BootCount != 7 || snap.Screen != logic.SleepSummary {
		t.Errorf("got boot %d screen %s", snap.BootCount, snap.Screen)
	}
}

func TestRecordCycle(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.RecordCycle(sampleCycle(), 3)
	tr.RecordCycle(sampleCycle(), 4)

	snap := tr.Snapshot()
	if snap.Cycles != 2 {
		t.Errorf("Cycles: got %d, want 2", snap.Cycles)
	}
	if snap.BootCount != 4 {
		t.Errorf("BootCount: got %d, want 4", snap.BootCount)
	}
	if snap.Screen != logic.Graph {
		t.Errorf("Screen: got %s, want GRAPH", snap.Screen)
	}
	if snap.LastCycle == nil || snap.LastCycle.BPM != 68 {
		t.Errorf("LastCycle: %+v", snap.LastCycle)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	samples := []uint8{0, 60, 61}
	tr.SetHistory(samples, 2, start)
	tr.RecordCycle(sampleCycle(), 1)

	samples[2] = 99 // caller mutation must not leak in
	snap1 := tr.Snapshot()
	if snap1.History[2] != 61 {
		t.Errorf("SetHistory should copy, got %v", snap1.History)
	}

	snap1.History[0] = 42
	snap1.LastCycle.BPM = 1
	snap2 := tr.Snapshot()
	if snap2.History[0] != 0 {
		t.Error("snapshot history aliases tracker state")
	}
	if snap2.LastCycle.BPM != 68 {
		t.Error("snapshot cycle aliases tracker state")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.now = func() time.Time { return start.Add(time.Hour) }

	if got := tr.Snapshot().Now; !got.Equal(start.Add(time.Hour)) {
		t.Errorf("Now: got %v", got)
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		BootCount:     5,
		Screen:        logic.Graph,
		Cycles:        3,
		LastCycle:     func() *Cycle { c := sampleCycle(); return &c }(),
		History:       []uint8{0, 0, 70, 72},
		HistoryCount:  2,
		LastReading:   start.Add(5 * time.Minute),
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 100, HistoryCapacity: 4, Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.BootCount != 5 || s.Screen != "GRAPH" || s.Cycles != 3 {
		t.Errorf("header fields: %+v", s)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.History.Count != 2 || s.History.Capacity != 4 || len(s.History.Samples) != 4 || s.History.Samples[3] != 72 {
		t.Errorf("history: %+v", s.History)
	}
	if s.History.LastUpdate == nil || *s.History.LastUpdate != "2026-01-01T00:05:00Z" {
		t.Errorf("last_update: %v", s.History.LastUpdate)
	}
	if s.LastCycle == nil {
		t.Fatal("expected last_cycle")
	}
	if s.LastCycle.WakeReason != "TAP" || s.LastCycle.State != "INTERACTIVE" {
		t.Errorf("cycle: %+v", s.LastCycle)
	}
	if s.LastCycle.BatteryVolts != 3.88 {
		t.Errorf("battery_volts: got %v, want 3.88", s.LastCycle.BatteryVolts)
	}
	if s.LastCycle.DurationMs != 61500 {
		t.Errorf("duration_ms: got %d", s.LastCycle.DurationMs)
	}
	if s.Event != "" || s.Reason != "" {
		t.Errorf("event/reason should be empty for web format: %q %q", s.Event, s.Reason)
	}
}

func TestFormatJSONNoCycleNoHistory(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["last_cycle"]; ok {
		t.Error("last_cycle should be omitted before the first cycle")
	}
	hist := raw["status"]["history"].(map[string]interface{})
	if hist["last_update"] != nil {
		t.Errorf("last_update should be null, got %v", hist["last_update"])
	}
	if raw["status"]["screen"] != "DASHBOARD" {
		t.Errorf("screen: got %v", raw["status"]["screen"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute), BootCount: 2}

	data := FormatStatusEvent(snap, "SLEEP", "TIMER")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SLEEP" {
		t.Errorf("Event: got %q, want SLEEP", parsed.Status.Event)
	}
	if parsed.Status.Reason != "TIMER" {
		t.Errorf("Reason: got %q, want TIMER", parsed.Status.Reason)
	}
	if parsed.Status.BootCount != 2 {
		t.Errorf("BootCount: got %d", parsed.Status.BootCount)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var raw map[string]interface{}
	json.Unmarshal(FormatStatusEvent(snap, "WAKE", ""), &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "WAKE" {
		t.Errorf("event: got %v, want WAKE", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.RecordCycle(sampleCycle(), uint32(i))
			tr.SetHistory([]uint8{uint8(i)}, 1, start)
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
