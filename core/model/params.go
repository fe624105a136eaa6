package model

import (
	"errors"
	"fmt"
)

// BatteryParams describes a battery energy storage system.
type BatteryParams struct {
	MaxChargeKW    float64
	MaxDischargeKW float64
	EnergyKWh      float64
	ChargeEff      float64
	DischargeEff   float64
	MinSoC         float64
	MaxSoC         float64
	InitialSoC     float64
	TargetSoC      float64
}

// Validate checks the physical consistency of the parameters.
func (p BatteryParams) Validate() error {
	var errs []error
	if p.EnergyKWh <= 0 {
		errs = append(errs, errors.New("battery energy must be positive"))
	}
	if p.MaxChargeKW < 0 || p.MaxDischargeKW < 0 {
		errs = append(errs, errors.New("battery power limits must be non-negative"))
	}
	if p.ChargeEff <= 0 || p.ChargeEff > 1 || p.DischargeEff <= 0 || p.DischargeEff > 1 {
		errs = append(errs, errors.New("battery efficiencies must be in (0,1]"))
	}
	errs = append(errs, checkSoCRange(p.MinSoC, p.MaxSoC, p.TargetSoC, "battery target"))
	return wrapConfig(errs)
}

// ThermalParams describes an ice thermal energy storage system. Temperatures
// are in degrees Celsius.
type ThermalParams struct {
	IceMass          float64
	IceChargeRate    float64
	IceDischargeRate float64
	CapacityKWh      float64 // q_stor
	CF               float64
	COP              float64

	ChilledWaterTemp float64
	FreezerTemp      float64
	CooledInletTemp  float64

	// ChargeCoef holds the six coefficients of the order 5 charge curve,
	// lowest order first. DischargeCoef holds the four coefficients of the
	// order 3 discharge curve.
	ChargeCoef    []float64
	DischargeCoef []float64

	MinSoC     float64
	MaxSoC     float64
	InitialSoC float64
	FinalSoC   float64
}

// ChargeDeltaT is the temperature lift used while charging.
func (p ThermalParams) ChargeDeltaT() float64 { return p.FreezerTemp - p.ChilledWaterTemp }

// DischargeDeltaT is the temperature difference used while discharging.
func (p ThermalParams) DischargeDeltaT() float64 { return p.CooledInletTemp - p.FreezerTemp }

// Validate checks the physical consistency of the parameters.
func (p ThermalParams) Validate() error {
	var errs []error
	if p.CapacityKWh <= 0 {
		errs = append(errs, errors.New("thermal q_stor must be positive"))
	}
	if p.COP <= 0 {
		errs = append(errs, errors.New("chiller COP must be positive"))
	}
	if p.IceChargeRate < 0 || p.IceDischargeRate < 0 {
		errs = append(errs, errors.New("ice charge and discharge rates must be non-negative"))
	}
	if len(p.ChargeCoef) != 6 {
		errs = append(errs, fmt.Errorf("charge curve needs 6 coefficients, got %d", len(p.ChargeCoef)))
	}
	if len(p.DischargeCoef) != 4 {
		errs = append(errs, fmt.Errorf("discharge curve needs 4 coefficients, got %d", len(p.DischargeCoef)))
	}
	errs = append(errs, checkSoCRange(p.MinSoC, p.MaxSoC, p.FinalSoC, "thermal final"))
	return wrapConfig(errs)
}

// FahrenheitToCelsius converts a configured temperature.
func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

func checkSoCRange(lo, hi, target float64, name string) error {
	if lo < 0 || hi > 100 || lo >= hi {
		return fmt.Errorf("soc range [%g,%g] must satisfy 0 <= min < max <= 100", lo, hi)
	}
	if target < lo || target > hi {
		return fmt.Errorf("%s soc %g outside [%g,%g]", name, target, lo, hi)
	}
	return nil
}

func wrapConfig(errs []error) error {
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}
