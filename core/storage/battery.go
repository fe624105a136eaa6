package storage

import (
	"fmt"

	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/optim"
)

// Battery is the formulation of a battery over an h-hour horizon.
type Battery struct {
	params model.BatteryParams
	h      int

	Charge    []optim.VarID
	Discharge []optim.VarID
	// SoC holds h+1 states; SoC[0] is pinned to the measured state.
	SoC  []optim.VarID
	Mode Mode
}

// NewBattery adds the battery variables and rows to p. The initial state of
// charge may lie outside the configured range: only the following states
// are bounded.
func NewBattery(p *optim.Problem, params model.BatteryParams, initialSoC float64, h int) (*Battery, error) {
	if h <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", model.ErrConfig)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	b := &Battery{
		params:    params,
		h:         h,
		Charge:    make([]optim.VarID, h),
		Discharge: make([]optim.VarID, h),
		SoC:       make([]optim.VarID, h+1),
	}
	b.SoC[0] = p.Fixed("bess_soc[0]", initialSoC)
	for i := 1; i <= h; i++ {
		b.SoC[i] = p.Continuous(fmt.Sprintf("bess_soc[%d]", i), params.MinSoC, params.MaxSoC)
	}
	for i := 0; i < h; i++ {
		b.Charge[i] = p.Continuous(fmt.Sprintf("bess_charge[%d]", i), 0, params.MaxChargeKW)
		b.Discharge[i] = p.Continuous(fmt.Sprintf("bess_discharge[%d]", i), 0, params.MaxDischargeKW)
	}
	b.Mode = NewMode(p, "bess", h)

	// soc[i+1] = soc[i] - (-ηc*charge + discharge/ηd) / E * 100
	chargeGain := 100 * params.ChargeEff / params.EnergyKWh
	dischargeLoss := 100 / (params.DischargeEff * params.EnergyKWh)
	for i := 0; i < h; i++ {
		p.AddRow(fmt.Sprintf("bess_soc_balance[%d]", i), optim.EQ, 0,
			optim.T(b.SoC[i+1], 1), optim.T(b.SoC[i], -1),
			optim.T(b.Charge[i], -chargeGain), optim.T(b.Discharge[i], dischargeLoss))
		p.AddRow(fmt.Sprintf("bess_charge_gate[%d]", i), optim.LE, params.MaxChargeKW,
			optim.T(b.Charge[i], 1), optim.T(b.Mode.At(i), params.MaxChargeKW))
		p.AddRow(fmt.Sprintf("bess_discharge_gate[%d]", i), optim.LE, 0,
			optim.T(b.Discharge[i], 1), optim.T(b.Mode.At(i), -params.MaxDischargeKW))
	}
	p.AddRow("bess_terminal_soc", optim.EQ, params.TargetSoC, optim.T(b.SoC[h], 1))
	return b, nil
}

// GridTerms returns the battery contribution to building power in hour i:
// charging adds load, discharging removes it.
func (b *Battery) GridTerms(i int) []optim.Term {
	return []optim.Term{optim.T(b.Charge[i], 1), optim.T(b.Discharge[i], -1)}
}

// Extract reads the battery trajectory from a solution.
func (b *Battery) Extract(sol *optim.Solution) model.StorageTrajectory {
	tr := model.StorageTrajectory{
		Charge:    cleanAll(sol.Many(b.Charge)),
		Discharge: cleanAll(sol.Many(b.Discharge)),
		SoC:       cleanAll(sol.Many(b.SoC)),
		Mode:      b.Mode.Values(sol),
		Net:       make([]float64, b.h),
	}
	for i := range tr.Net {
		tr.Net[i] = clean(tr.Discharge[i] - tr.Charge[i])
	}
	return tr
}
