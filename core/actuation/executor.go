// Package actuation delivers guarded commands to storage actuators.
package actuation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/ess-scheduler/core/guard"
	"github.com/kilianp07/ess-scheduler/core/logger"
	"github.com/kilianp07/ess-scheduler/core/model"
)

// Actuator sends one command to a storage device.
type Actuator interface {
	Actuate(ctx context.Context, cmd model.ActuationCommand) error
}

// StatusPublisher publishes the operation applied to a storage device.
type StatusPublisher interface {
	PublishOperation(ctx context.Context, kind model.StorageKind, op model.Operation) error
}

// StateReader returns the latest known state of a storage device.
type StateReader interface {
	StorageState(kind model.StorageKind) model.StorageState
}

// Retrier runs an operation with bounded retries.
type Retrier interface {
	Do(ctx context.Context, op func() error) error
}

// Outcome describes what happened to a command.
type Outcome struct {
	Command  model.ActuationCommand
	Decision guard.Decision
	Err      error
	// FollowUp is a command to run later, used to return ice storage to
	// cooling once a short charge completes.
	FollowUp *model.ActuationCommand
}

// Executor runs commands through the guard and the actuator.
type Executor struct {
	guard    *guard.Guard
	actuator Actuator
	status   StatusPublisher
	state    StateReader
	retrier  Retrier
	logger   logger.Logger
	now      func() time.Time
}

// NewExecutor builds an Executor. status may be nil.
func NewExecutor(g *guard.Guard, act Actuator, status StatusPublisher, state StateReader, r Retrier, log logger.Logger) *Executor {
	return &Executor{guard: g, actuator: act, status: status, state: state, retrier: r, logger: log, now: time.Now}
}

// Execute evaluates cmd against the current storage state and sends the
// approved or neutral command. Exhausted retries return model.ErrActuation
// and the command is abandoned.
func (e *Executor) Execute(ctx context.Context, cmd model.ActuationCommand) Outcome {
	now := e.now()
	st := e.state.StorageState(cmd.Storage)
	dec := e.guard.Evaluate(cmd, st, now)
	out := Outcome{Command: cmd, Decision: dec}
	if dec.Verdict == guard.Suppressed {
		e.logger.Warnf("command %s for %s suppressed: %s", cmd.ID, cmd.Storage, dec.Reason)
	}

	send := dec.Command
	err := e.retrier.Do(ctx, func() error { return e.actuator.Actuate(ctx, send) })
	if err != nil {
		out.Err = fmt.Errorf("%w: %s %s: %w", model.ErrActuation, send.Storage, send.Operation(), err)
		e.logger.Errorf("command %s abandoned: %v", send.ID, out.Err)
		return out
	}
	e.logger.Infof("%s %s %.2f applied (command %s)", send.Storage, send.Operation(), send.Magnitude(), send.ID)

	if e.status != nil {
		if err := e.status.PublishOperation(ctx, send.Storage, send.Operation()); err != nil {
			e.logger.Warnf("publish %s operation status: %v", send.Storage, err)
		}
	}
	if send.Storage == model.StorageThermal && send.Operation() == model.OperationCharge {
		if d, ok := ChargeFollowUpDelay(send.Setpoint); ok {
			f := model.NewCommand(model.StorageThermal, 0, now.Add(d), send.Hour)
			out.FollowUp = &f
		}
	}
	return out
}

// ChargeFollowUpDelay returns when a thermal charge of the given setpoint is
// expected to complete: |sp|/40 hours plus 200 s, at least 800 s. Charges
// lasting 3000 s or more get no follow-up and run until the next command.
func ChargeFollowUpDelay(setpoint float64) (time.Duration, bool) {
	secs := math.Abs(setpoint)/40*3600 + 200
	if secs >= 3000 {
		return 0, false
	}
	secs = math.Max(secs, 800)
	return time.Duration(secs * float64(time.Second)), true
}
