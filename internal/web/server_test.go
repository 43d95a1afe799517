package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/wrist-hr/internal/logic"
	"github.com/sweeney/wrist-hr/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	cfg := status.Config{
		InactivityTimeoutMs: 60000,
		TimerWakeMs:         300000,
		MeasureWindowMs:     15000,
		PollMs:              100,
		HistoryCapacity:     4,
		Broker:              "tcp://192.168.1.200:1883",
		HTTPAddr:            ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func record(tr *status.Tracker) {
	tr.RecordCycle(status.Cycle{
		ID:       "abc",
		Reason:   logic.TimerWake,
		State:    logic.ScheduledMeasurement,
		BPM:      71,
		Volts:    3.95,
		Stored:   true,
		Screen:   logic.Dashboard,
		Duration: 15 * time.Second,
		Finished: start.Add(5 * time.Minute),
	}, 9)
	tr.SetHistory([]uint8{0, 0, 69, 71}, 2, start.Add(5*time.Minute))
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	record(tr)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.BootCount != 9 {
		t.Errorf("BootCount: got %d, want 9", sj.Status.BootCount)
	}
	if sj.Status.LastCycle == nil || sj.Status.LastCycle.BPM != 71 {
		t.Errorf("LastCycle: %+v", sj.Status.LastCycle)
	}
	if sj.Status.History.Count != 2 || len(sj.Status.History.Samples) != 4 {
		t.Errorf("History: %+v", sj.Status.History)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Config.MeasureWindowMs != 15000 {
		t.Errorf("Config.MeasureWindowMs: got %d", sj.Status.Config.MeasureWindowMs)
	}
}

func TestJSONBeforeFirstCycle(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.LastCycle != nil {
		t.Errorf("expected no cycle, got %+v", sj.Status.LastCycle)
	}
	if sj.Status.Cycles != 0 {
		t.Errorf("Cycles: got %d", sj.Status.Cycles)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	record(tr)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body := getBody(t, ts.URL+"/")
	for _, want := range []string{"71 BPM", "3.95 V", "2 / 4 readings", "TIMER", "<polyline"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLBeforeFirstCycle(t *testing.T) {
	ts, _ := newTestServer(t)
	body := getBody(t, ts.URL+"/index.html")
	if !strings.Contains(body, "No cycle yet.") {
		t.Error("expected placeholder before first cycle")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.MQTT.Connected {
		t.Error("expected MQTT disconnected initially")
	}

	record(tr)
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
	if sj.Status.Cycles != 1 {
		t.Errorf("Cycles: got %d, want 1", sj.Status.Cycles)
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name    string
		samples []uint8
		want    string
	}{
		{"too short", []uint8{70}, ""},
		{"all empty", []uint8{0, 0, 0}, ""},
		{"endpoints", []uint8{40, 180}, "0.0,120 480.0,0"},
		{"skips empty and clamps", []uint8{0, 200, 110}, "240.0,0 480.0,60"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.samples); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	tr := status.NewTracker(start, status.Config{HistoryCapacity: 4})
	tr.SetRetained(logic.Retained{BootCount: 7, Screen: logic.Graph})
	srv := New(ln.Addr().String(), tr)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	sj := getJSON(t, "http://"+ln.Addr().String()+"/index.json")
	if sj.Status.BootCount != 7 {
		t.Errorf("boot count: got %d, want 7", sj.Status.BootCount)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-done; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Serve returned %v, want ErrServerClosed", err)
	}
}
