package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Operation is the actuator operation derived from a setpoint. The numeric
// values are the codes published in operation status messages.
type Operation int

const (
	OperationOff       Operation = 0
	OperationCooling   Operation = 1
	OperationDischarge Operation = 2
	OperationCharge    Operation = 3
)

func (o Operation) String() string {
	switch o {
	case OperationOff:
		return "off"
	case OperationCooling:
		return "cooling"
	case OperationDischarge:
		return "discharge"
	case OperationCharge:
		return "charge"
	default:
		return "unknown"
	}
}

// NeutralOperation is the idle action for a storage kind: batteries are
// switched off, thermal storage falls back to chiller cooling.
func NeutralOperation(kind StorageKind) Operation {
	if kind == StorageThermal {
		return OperationCooling
	}
	return OperationOff
}

// ActuationCommand is a timed setpoint for one storage device. Negative
// setpoints charge, positive setpoints discharge and zero is idle.
type ActuationCommand struct {
	ID       string      `json:"id"`
	Storage  StorageKind `json:"kind"`
	Setpoint float64     `json:"setpoint"`
	At       time.Time   `json:"at"`
	// Hour is the horizon index the command was derived from.
	Hour int `json:"hour"`
}

// NewCommand builds a command with a fresh identifier.
func NewCommand(kind StorageKind, setpoint float64, at time.Time, hour int) ActuationCommand {
	return ActuationCommand{
		ID:       uuid.NewString(),
		Storage:  kind,
		Setpoint: setpoint,
		At:       at,
		Hour:     hour,
	}
}

// Operation returns the operation implied by the setpoint sign.
func (c ActuationCommand) Operation() Operation {
	switch {
	case c.Setpoint < 0:
		return OperationCharge
	case c.Setpoint > 0:
		return OperationDischarge
	default:
		return NeutralOperation(c.Storage)
	}
}

// Magnitude is the absolute setpoint sent to the actuator.
func (c ActuationCommand) Magnitude() float64 { return math.Abs(c.Setpoint) }

// IsIdle reports whether the command neither charges nor discharges.
func (c ActuationCommand) IsIdle() bool { return c.Setpoint == 0 }

// Neutral returns a copy of the command turned into its idle action.
func (c ActuationCommand) Neutral() ActuationCommand {
	c.Setpoint = 0
	return c
}
