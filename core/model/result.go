package model

import "time"

// SolveStatus tells whether the returned plan is proven optimal.
type SolveStatus string

const (
	StatusOptimal  SolveStatus = "optimal"
	StatusFeasible SolveStatus = "feasible"
)

// StorageTrajectory is the planned operation of one storage device.
type StorageTrajectory struct {
	// Net is the setpoint per hour: negative charges, positive discharges.
	// For thermal storage it is the thermal usage (discharge - charge).
	Net       []float64 `json:"net"`
	Charge    []float64 `json:"charge"`
	Discharge []float64 `json:"discharge"`
	Mode      []int     `json:"mode"`
	// SoC holds H+1 states, SoC[0] is the initial condition.
	SoC []float64 `json:"soc"`
	// Power is the electrical equivalent of the thermal usage; nil for batteries.
	Power []float64 `json:"power,omitempty"`
}

// DispatchResult is the outcome of one optimization.
type DispatchResult struct {
	Start      time.Time                         `json:"start"`
	System     SystemKind                        `json:"-"`
	TotalPower []float64                         `json:"total_power"`
	Storages   map[StorageKind]StorageTrajectory `json:"storages"`
	// Peak is the horizon peak under a flat tariff. Peaks holds one value
	// per TOU period that has hours in the horizon.
	Peak      float64            `json:"peak,omitempty"`
	Peaks     map[string]float64 `json:"peaks,omitempty"`
	Status    SolveStatus        `json:"status"`
	Objective float64            `json:"objective"`
}

// Horizon returns the number of planned hours.
func (r DispatchResult) Horizon() int { return len(r.TotalPower) }

// Setpoints returns the per-hour setpoints of a storage device, or nil when
// the device is not part of the plan.
func (r DispatchResult) Setpoints(kind StorageKind) []float64 {
	t, ok := r.Storages[kind]
	if !ok {
		return nil
	}
	return clone(t.Net)
}

// Schedule is the published plan keyed by RFC3339 hour.
type Schedule map[string]map[string]float64

// HourKey formats the key used in published schedules.
func HourKey(t time.Time) string { return t.UTC().Truncate(time.Hour).Format(time.RFC3339) }
