// Package guard gates actuation commands against stale or out-of-range
// state of charge telemetry.
package guard

import (
	"fmt"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// DefaultStaleAfter is the telemetry age beyond which commands are suppressed.
const DefaultStaleAfter = 150 * time.Second

// DefaultMargin keeps commands away from the configured SOC limits.
const DefaultMargin = 1.0

// Config tunes the guard. A negative StaleAfter disables the staleness check
// and a negative Margin lets commands run up to the SOC limits themselves.
type Config struct {
	StaleAfter time.Duration
	Margin     float64
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.StaleAfter == 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.Margin == 0 {
		c.Margin = DefaultMargin
	}
}

// Verdict is the outcome of a guard evaluation.
type Verdict string

const (
	Approved   Verdict = "approved"
	Suppressed Verdict = "suppressed"
)

// Decision is the guard result for one command. When suppressed, Command is
// the neutral fallback to send instead.
type Decision struct {
	Verdict Verdict
	Reason  string
	Command model.ActuationCommand
}

// Guard evaluates commands.
type Guard struct {
	cfg Config
}

// New returns a Guard.
func New(cfg Config) *Guard {
	cfg.SetDefaults()
	return &Guard{cfg: cfg}
}

// Evaluate checks cmd against the storage state observed at now. Idle
// commands are always approved.
func (g *Guard) Evaluate(cmd model.ActuationCommand, state model.StorageState, now time.Time) Decision {
	if cmd.IsIdle() {
		return Decision{Verdict: Approved, Command: cmd}
	}
	if g.cfg.StaleAfter >= 0 {
		if !state.Known() {
			return suppress(cmd, fmt.Sprintf("%v: no %s soc received", model.ErrStaleData, cmd.Storage))
		}
		if age := now.Sub(state.UpdatedAt); age > g.cfg.StaleAfter {
			return suppress(cmd, fmt.Sprintf("%v: %s soc is %s old", model.ErrStaleData, cmd.Storage, age.Round(time.Second)))
		}
	}
	if !g.Allowed(cmd.Operation(), state) {
		return suppress(cmd, fmt.Sprintf("%s soc %.2f too close to limits [%g,%g] for %s",
			cmd.Storage, state.SoC, state.MinSoC, state.MaxSoC, cmd.Operation()))
	}
	return Decision{Verdict: Approved, Command: cmd}
}

// Allowed reports whether the operation keeps the state of charge inside the
// configured limits minus the margin.
func (g *Guard) Allowed(op model.Operation, state model.StorageState) bool {
	margin := max(g.cfg.Margin, 0)
	switch op {
	case model.OperationCharge:
		return state.SoC < state.MaxSoC-margin
	case model.OperationDischarge:
		return state.SoC > state.MinSoC+margin
	default:
		return true
	}
}

func suppress(cmd model.ActuationCommand, reason string) Decision {
	return Decision{Verdict: Suppressed, Reason: reason, Command: cmd.Neutral()}
}
