package metrics

import (
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// CycleEvent summarizes one scheduling cycle.
type CycleEvent struct {
	CycleID   string
	System    string
	Method    string
	Status    string
	Objective float64
	Peak      float64
	Duration  time.Duration
	Skipped   bool
	Error     string
	Time      time.Time
}

// MetricsSink records scheduling results for observability purposes.
type MetricsSink interface {
	RecordCycle(ev CycleEvent) error
}

// SetpointEvent is one planned hourly setpoint of a storage device.
type SetpointEvent struct {
	CycleID  string
	Storage  model.StorageKind
	Hour     time.Time
	Setpoint float64
	SoC      float64
}

// SetpointRecorder records the planned setpoints of a cycle.
type SetpointRecorder interface {
	RecordSetpoints(evs []SetpointEvent) error
}

// CommandEvent captures the delivery of an actuation command.
type CommandEvent struct {
	CommandID  string
	Storage    model.StorageKind
	Operation  model.Operation
	Setpoint   float64
	Suppressed bool
	Reason     string
	Error      string
	Latency    time.Duration
	Time       time.Time
}

// CommandRecorder records actuation commands.
type CommandRecorder interface {
	RecordCommand(ev CommandEvent) error
}

// SoCEvent is a state of charge sample accepted from telemetry.
type SoCEvent struct {
	Storage model.StorageKind
	SoC     float64
	Time    time.Time
}

// SoCRecorder records state of charge samples.
type SoCRecorder interface {
	RecordSoC(ev SoCEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(CycleEvent) error          { return nil }
func (NopSink) RecordSetpoints([]SetpointEvent) error { return nil }
func (NopSink) RecordCommand(CommandEvent) error      { return nil }
func (NopSink) RecordSoC(SoCEvent) error              { return nil }
