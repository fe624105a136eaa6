package guard

import (
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
)

var now = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func state(soc float64) model.StorageState {
	return model.StorageState{Kind: model.StorageBattery, SoC: soc, MinSoC: 20, MaxSoC: 80, UpdatedAt: now.Add(-10 * time.Second)}
}

func TestAllowedBoundaries(t *testing.T) {
	g := New(Config{})
	tests := []struct {
		op   model.Operation
		soc  float64
		want bool
	}{
		{model.OperationCharge, 79, false},
		{model.OperationCharge, 78, true},
		{model.OperationCharge, 80, false},
		{model.OperationDischarge, 21, false},
		{model.OperationDischarge, 22, true},
		{model.OperationDischarge, 20, false},
		{model.OperationOff, 80, true},
		{model.OperationCooling, 20, true},
	}
	for _, tt := range tests {
		if got := g.Allowed(tt.op, state(tt.soc)); got != tt.want {
			t.Errorf("%s at %g: got %v want %v", tt.op, tt.soc, got, tt.want)
		}
	}
}

func TestNegativeMarginMeansNone(t *testing.T) {
	g := New(Config{Margin: -1})
	if !g.Allowed(model.OperationCharge, state(79.5)) {
		t.Fatal("charge below the maximum should pass without margin")
	}
	if g.Allowed(model.OperationCharge, state(80)) {
		t.Fatal("charge at the maximum must stay suppressed")
	}
	if !g.Allowed(model.OperationDischarge, state(20.5)) {
		t.Fatal("discharge above the minimum should pass without margin")
	}
	if g.Allowed(model.OperationDischarge, state(20)) {
		t.Fatal("discharge at the minimum must stay suppressed")
	}

	if New(Config{}).Allowed(model.OperationCharge, state(79.5)) {
		t.Fatal("an unset margin should default to one point")
	}
}

func TestEvaluateStale(t *testing.T) {
	g := New(Config{})
	cmd := model.NewCommand(model.StorageBattery, -10, now, 0)
	st := state(50)
	st.UpdatedAt = now.Add(-151 * time.Second)
	d := g.Evaluate(cmd, st, now)
	if d.Verdict != Suppressed || !strings.Contains(d.Reason, "stale") {
		t.Fatalf("expected stale suppression, got %+v", d)
	}
	if !d.Command.IsIdle() || d.Command.Operation() != model.OperationOff || d.Command.ID != cmd.ID {
		t.Fatalf("expected neutral fallback, got %+v", d.Command)
	}

	st.UpdatedAt = now.Add(-150 * time.Second)
	if d := g.Evaluate(cmd, st, now); d.Verdict != Approved {
		t.Fatalf("sample at the limit should pass, got %+v", d)
	}
}

func TestEvaluateUnknownStateIsStale(t *testing.T) {
	g := New(Config{})
	cmd := model.NewCommand(model.StorageThermal, 30, now, 0)
	d := g.Evaluate(cmd, model.StorageState{Kind: model.StorageThermal, MinSoC: 10, MaxSoC: 90}, now)
	if d.Verdict != Suppressed {
		t.Fatalf("expected suppression without telemetry, got %+v", d)
	}
	if d.Command.Operation() != model.OperationCooling {
		t.Fatalf("thermal fallback should be cooling, got %s", d.Command.Operation())
	}
}

func TestEvaluateStalenessDisabled(t *testing.T) {
	g := New(Config{StaleAfter: -1})
	cmd := model.NewCommand(model.StorageBattery, 10, now, 0)
	st := state(50)
	st.UpdatedAt = now.Add(-24 * time.Hour)
	if d := g.Evaluate(cmd, st, now); d.Verdict != Approved {
		t.Fatalf("expected approval with staleness disabled, got %+v", d)
	}
}

func TestEvaluateLimits(t *testing.T) {
	g := New(Config{})
	charge := model.NewCommand(model.StorageBattery, -10, now, 0)
	if d := g.Evaluate(charge, state(79), now); d.Verdict != Suppressed {
		t.Fatalf("charge near max should be suppressed, got %+v", d)
	}
	discharge := model.NewCommand(model.StorageBattery, 10, now, 0)
	if d := g.Evaluate(discharge, state(21), now); d.Verdict != Suppressed {
		t.Fatalf("discharge near min should be suppressed, got %+v", d)
	}
	if d := g.Evaluate(discharge, state(50), now); d.Verdict != Approved || d.Command.Setpoint != 10 {
		t.Fatalf("discharge at 50 should pass unchanged, got %+v", d)
	}
}

func TestEvaluateIdleAlwaysApproved(t *testing.T) {
	g := New(Config{})
	idle := model.NewCommand(model.StorageBattery, 0, now, 0)
	st := state(80)
	st.UpdatedAt = time.Time{}
	if d := g.Evaluate(idle, st, now); d.Verdict != Approved {
		t.Fatalf("idle command should be approved, got %+v", d)
	}
}
