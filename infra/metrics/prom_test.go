package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/ess-scheduler/core/metrics"
	"github.com/kilianp07/ess-scheduler/core/model"
)

func TestPromSink_RecordCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordCycle(coremetrics.CycleEvent{System: "bess", Method: "control", Status: "optimal", Objective: 42, Duration: time.Second})
	_ = sink.RecordCycle(coremetrics.CycleEvent{System: "bess", Method: "control", Skipped: true, Error: "data"})
	_ = sink.RecordCycle(coremetrics.CycleEvent{System: "bess", Method: "control", Error: "infeasible"})

	expected := `
# HELP ess_cycle_events_total Scheduling cycles by system, method and solver status
# TYPE ess_cycle_events_total counter
ess_cycle_events_total{method="control",status="failed",system="bess"} 1
ess_cycle_events_total{method="control",status="optimal",system="bess"} 1
ess_cycle_events_total{method="control",status="skipped",system="bess"} 1
`
	if err := testutil.CollectAndCompare(sink.cycles, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.objective); v != 42 {
		t.Errorf("objective gauge %v, want 42", v)
	}
	if c := testutil.CollectAndCount(sink.duration); c != 1 {
		t.Errorf("expected one duration series, got %d", c)
	}
}

func TestPromSink_SetpointsCommandsSoC(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordSetpoints([]coremetrics.SetpointEvent{
		{Storage: model.StorageBattery, Setpoint: -10},
		{Storage: model.StorageBattery, Setpoint: 20},
		{Storage: model.StorageThermal, Setpoint: 5},
	})
	if v := testutil.ToFloat64(sink.setpoints.WithLabelValues("bess", "1")); v != 20 {
		t.Errorf("bess offset 1 = %v", v)
	}
	_ = sink.RecordSetpoints([]coremetrics.SetpointEvent{{Storage: model.StorageBattery, Setpoint: 1}})
	if c := testutil.CollectAndCount(sink.setpoints); c != 1 {
		t.Errorf("expected setpoints reset, got %d series", c)
	}

	_ = sink.RecordCommand(coremetrics.CommandEvent{Storage: model.StorageThermal, Operation: model.OperationCharge, Latency: time.Millisecond})
	_ = sink.RecordCommand(coremetrics.CommandEvent{Storage: model.StorageThermal, Operation: model.OperationCooling, Suppressed: true})
	if v := testutil.ToFloat64(sink.commands.WithLabelValues("tess", "charge", "executed")); v != 1 {
		t.Errorf("executed charge = %v", v)
	}
	if v := testutil.ToFloat64(sink.commands.WithLabelValues("tess", "cooling", "suppressed")); v != 1 {
		t.Errorf("suppressed cooling = %v", v)
	}

	_ = sink.RecordSoC(coremetrics.SoCEvent{Storage: model.StorageBattery, SoC: 63})
	if v := testutil.ToFloat64(sink.soc.WithLabelValues("bess")); v != 63 {
		t.Errorf("soc gauge %v", v)
	}
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	b, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	_ = a.RecordSoC(coremetrics.SoCEvent{Storage: model.StorageThermal, SoC: 12})
	if v := testutil.ToFloat64(b.soc.WithLabelValues("tess")); v != 12 {
		t.Fatalf("collectors not shared: %v", v)
	}
}
