package storage

import (
	"fmt"
	"math"

	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/optim"
)

// Thermal is the formulation of an ice thermal storage over an h-hour
// horizon. Charge and discharge are thermal quantities; their electrical
// equivalent is obtained through the chiller COP.
type Thermal struct {
	params  model.ThermalParams
	h       int
	charge  Polynomial
	dischrg Polynomial

	Charge    []optim.VarID
	Discharge []optim.VarID
	SoC       []optim.VarID
	Mode      Mode
}

// NewThermal adds the thermal storage variables and rows to p. cooling is
// the aligned cooling load used to cap discharge.
func NewThermal(p *optim.Problem, params model.ThermalParams, initialSoC float64, cooling []float64, h int) (*Thermal, error) {
	if h <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", model.ErrConfig)
	}
	if len(cooling) != h {
		return nil, fmt.Errorf("%w: cooling load has %d values, want %d", model.ErrData, len(cooling), h)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	t := &Thermal{
		params:    params,
		h:         h,
		charge:    Polynomial(params.ChargeCoef),
		dischrg:   Polynomial(params.DischargeCoef),
		Charge:    make([]optim.VarID, h),
		Discharge: make([]optim.VarID, h),
		SoC:       make([]optim.VarID, h+1),
	}
	t.SoC[0] = p.Fixed("tess_soc[0]", initialSoC)
	for i := 1; i <= h; i++ {
		t.SoC[i] = p.Continuous(fmt.Sprintf("tess_soc[%d]", i), params.MinSoC, params.MaxSoC)
	}
	for i := 0; i < h; i++ {
		t.Charge[i] = p.Continuous(fmt.Sprintf("tess_charge[%d]", i), 0, optim.Inf)
		t.Discharge[i] = p.Continuous(fmt.Sprintf("tess_discharge[%d]", i), 0, optim.Inf)
	}
	t.Mode = NewMode(p, "tess", h)

	step := 100 / params.CapacityKWh
	for i := 0; i < h; i++ {
		// soc[i+1] = soc[i] - (discharge - charge) / q_stor * 100
		p.AddRow(fmt.Sprintf("tess_soc_balance[%d]", i), optim.EQ, 0,
			optim.T(t.SoC[i+1], 1), optim.T(t.SoC[i], -1),
			optim.T(t.Discharge[i], step), optim.T(t.Charge[i], -step))
		p.AddCurveBound(optim.CurveBound{
			Name:         fmt.Sprintf("tess_charge_curve[%d]", i),
			Target:       t.Charge[i],
			State:        t.SoC[i],
			Gate:         t.Mode.At(i),
			GateInverted: true,
			Curve:        t.ChargeLimit,
		})
		p.AddCurveBound(optim.CurveBound{
			Name:   fmt.Sprintf("tess_discharge_curve[%d]", i),
			Target: t.Discharge[i],
			State:  t.SoC[i],
			Gate:   t.Mode.At(i),
			Curve:  t.DischargeLimit,
		})
		p.AddRow(fmt.Sprintf("tess_discharge_cooling[%d]", i), optim.LE, 0,
			optim.T(t.Discharge[i], 1), optim.T(t.Mode.At(i), -math.Max(0, cooling[i])*params.COP))
	}
	p.AddRow("tess_terminal_soc", optim.GE, params.FinalSoC, optim.T(t.SoC[h], 1))
	return t, nil
}

// ChargeLimit is the charge capacity at a state of charge in percent.
func (t *Thermal) ChargeLimit(soc float64) float64 {
	return t.charge.Eval(soc/100) * t.params.IceChargeRate * t.params.ChargeDeltaT() * t.params.CF
}

// DischargeLimit is the discharge capacity at a state of charge in percent.
func (t *Thermal) DischargeLimit(soc float64) float64 {
	return t.dischrg.Eval(soc/100) * t.params.IceDischargeRate * t.params.DischargeDeltaT() * t.params.CF
}

// GridTerms returns the electrical contribution of hour i to building
// power, -(discharge - charge) / COP.
func (t *Thermal) GridTerms(i int) []optim.Term {
	k := 1 / t.params.COP
	return []optim.Term{optim.T(t.Charge[i], k), optim.T(t.Discharge[i], -k)}
}

// Extract reads the thermal trajectory from a solution. Net holds the
// thermal usage and Power its electrical equivalent.
func (t *Thermal) Extract(sol *optim.Solution) model.StorageTrajectory {
	tr := model.StorageTrajectory{
		Charge:    cleanAll(sol.Many(t.Charge)),
		Discharge: cleanAll(sol.Many(t.Discharge)),
		SoC:       cleanAll(sol.Many(t.SoC)),
		Mode:      t.Mode.Values(sol),
		Net:       make([]float64, t.h),
		Power:     make([]float64, t.h),
	}
	for i := 0; i < t.h; i++ {
		usage := tr.Discharge[i] - tr.Charge[i]
		tr.Net[i] = clean(usage)
		tr.Power[i] = clean(-usage / t.params.COP)
	}
	return tr
}

// clean removes solver noise so that identical plans compare equal.
func clean(v float64) float64 {
	r := math.Round(v*1e9) / 1e9
	if r == 0 {
		return 0
	}
	return r
}

func cleanAll(v []float64) []float64 {
	for i := range v {
		v[i] = clean(v[i])
	}
	return v
}
