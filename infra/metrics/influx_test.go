package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/ess-scheduler/core/metrics"
	"github.com/kilianp07/ess-scheduler/core/model"
)

type lineServer struct {
	mu     sync.Mutex
	bodies []string
	srv    *httptest.Server
}

func newLineServer(t *testing.T) *lineServer {
	t.Helper()
	ls := &lineServer{}
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.bodies = append(ls.bodies, strings.TrimSpace(string(data)))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *lineServer) got() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.bodies...)
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordCycle(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(ls.srv.URL, "token", "org", "bucket")
	now := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	ev := coremetrics.CycleEvent{
		CycleID:   "c1",
		System:    "bess",
		Method:    "control",
		Status:    "optimal",
		Objective: 123.4567,
		Peak:      80,
		Duration:  1500 * time.Millisecond,
		Time:      now,
	}
	if err := sink.RecordCycle(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("ess_cycle").
		AddTag("system", "bess").
		AddTag("method", "control").
		AddTag("cycle_id", "c1").
		AddField("status", "optimal").
		AddField("objective", 123.457).
		AddField("peak_kw", 80.0).
		AddField("duration_ms", 1500.0).
		AddField("skipped", false).
		SetTime(now)
	if got := ls.got(); len(got) != 1 || got[0] != line(p) {
		t.Errorf("unexpected body: %#v", got)
	}
}

func TestInfluxSink_RecordSetpoints(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(ls.srv.URL, "token", "org", "bucket")
	now := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	evs := []coremetrics.SetpointEvent{
		{CycleID: "c1", Storage: model.StorageBattery, Hour: now, Setpoint: -50, SoC: 50},
		{CycleID: "c1", Storage: model.StorageBattery, Hour: now.Add(time.Hour), Setpoint: 25.5, SoC: 72.5},
	}
	if err := sink.RecordSetpoints(evs); err != nil {
		t.Fatalf("record error: %v", err)
	}
	got := ls.got()
	if len(got) != 1 {
		t.Fatalf("expected one batch, got %d", len(got))
	}
	lines := strings.Split(got[0], "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %#v", lines)
	}
	p := write.NewPointWithMeasurement("ess_setpoint").
		AddTag("storage", "bess").
		AddTag("cycle_id", "c1").
		AddField("setpoint_kw", 25.5).
		AddField("soc", 72.5).
		SetTime(now.Add(time.Hour))
	if lines[1] != line(p) {
		t.Errorf("unexpected line %s", lines[1])
	}

	if err := sink.RecordSetpoints(nil); err != nil {
		t.Fatalf("empty setpoints: %v", err)
	}
	if len(ls.got()) != 1 {
		t.Fatal("empty setpoints must not write")
	}
}

func TestInfluxSink_RecordCommandAndSoC(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(ls.srv.URL, "token", "org", "bucket")
	now := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	if err := sink.RecordCommand(coremetrics.CommandEvent{
		CommandID:  "cmd1",
		Storage:    model.StorageThermal,
		Operation:  model.OperationCooling,
		Suppressed: true,
		Reason:     "soc stale",
		Latency:    20 * time.Millisecond,
		Time:       now,
	}); err != nil {
		t.Fatalf("record command: %v", err)
	}
	if err := sink.RecordSoC(coremetrics.SoCEvent{Storage: model.StorageThermal, SoC: 44.4444, Time: now}); err != nil {
		t.Fatalf("record soc: %v", err)
	}
	cmd := write.NewPointWithMeasurement("ess_command").
		AddTag("storage", "tess").
		AddTag("operation", "cooling").
		AddTag("command_id", "cmd1").
		AddField("setpoint_kw", 0.0).
		AddField("suppressed", true).
		AddField("latency_ms", 20.0).
		AddField("reason", "soc stale").
		SetTime(now)
	soc := write.NewPointWithMeasurement("ess_soc").
		AddTag("storage", "tess").
		AddField("soc", 44.444).
		SetTime(now)
	got := ls.got()
	if len(got) != 2 || got[0] != line(cmd) || got[1] != line(soc) {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
