package events

import (
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// CommandExecuted is published for each command handed to the actuator.
type CommandExecuted struct {
	CycleID    string
	Command    model.ActuationCommand
	Suppressed bool
	Reason     string
	Err        error
	Latency    time.Duration
}

// SoCUpdated is published when a telemetry sample is accepted.
type SoCUpdated struct {
	Sample model.SoCSample
}
