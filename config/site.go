package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kilianp07/ess-scheduler/core/dispatch"
	"github.com/kilianp07/ess-scheduler/core/forecast"
	"github.com/kilianp07/ess-scheduler/core/model"
)

// DemandRateConfig is the demand_rate_config section. Rates are monthly.
type DemandRateConfig struct {
	Type                   string  `json:"type_of_demand_rate"`
	DemandCharge           float64 `json:"demand_charge"`
	PeakDemandRate         float64 `json:"peak_demand_rate"`
	PartPeakDemandPrice    float64 `json:"part_peak_demand_price"`
	PeakTimeStart          int     `json:"peak_time_start"`
	PeakTimeEnd            int     `json:"peak_time_end"`
	FirstPartialPeakStart  int     `json:"first_partial_peak_start"`
	FirstPartialPeakStop   int     `json:"first_partial_peak_stop"`
	SecondPartialPeakStart int     `json:"second_partial_peak_start"`
	SecondPartialPeakStop  int     `json:"second_partial_peak_stop"`
}

// DefaultDemandRate returns the flat tariff with the default TOU windows.
func DefaultDemandRate() DemandRateConfig {
	return DemandRateConfig{
		Type:                   string(model.TariffFlat),
		DemandCharge:           26.07,
		PeakDemandRate:         32.90,
		PartPeakDemandPrice:    6.81,
		PeakTimeStart:          16,
		PeakTimeEnd:            21,
		FirstPartialPeakStart:  14,
		FirstPartialPeakStop:   16,
		SecondPartialPeakStart: 21,
		SecondPartialPeakStop:  23,
	}
}

// Schedule converts the section.
func (c DemandRateConfig) Schedule() (model.DemandRateSchedule, error) {
	mode, err := model.ParseTariffMode(c.Type)
	if err != nil {
		return model.DemandRateSchedule{}, err
	}
	return model.DemandRateSchedule{
		Mode:        mode,
		FlatRate:    c.DemandCharge,
		PeakRate:    c.PeakDemandRate,
		PartialRate: c.PartPeakDemandPrice,
		Peak:        model.HourWindow{Start: c.PeakTimeStart, Stop: c.PeakTimeEnd},
		Partial1:    model.HourWindow{Start: c.FirstPartialPeakStart, Stop: c.FirstPartialPeakStop},
		Partial2:    model.HourWindow{Start: c.SecondPartialPeakStart, Stop: c.SecondPartialPeakStop},
	}, nil
}

// BessConfig is the bess_config section.
type BessConfig struct {
	RatedKW               float64 `json:"rated_kw"`
	RatedKWh              float64 `json:"rated_kwh"`
	MaxChargingPower      float64 `json:"max_charging_power"`
	MaxDischargingPower   float64 `json:"max_discharging_power"`
	ChargingEfficiency    float64 `json:"charging_efficiency"`
	DischargingEfficiency float64 `json:"discharging_efficiency"`
	ReferenceSoC          float64 `json:"reference_soc"`
	InitialSoC            float64 `json:"initial_soc"`
	MinSoC                float64 `json:"min_soc"`
	MaxSoC                float64 `json:"max_soc"`
}

// DefaultBess returns a 100 kW / 200 kWh battery.
func DefaultBess() BessConfig {
	return BessConfig{
		RatedKW:               100,
		RatedKWh:              200,
		MaxChargingPower:      100,
		MaxDischargingPower:   100,
		ChargingEfficiency:    0.925,
		DischargingEfficiency: 0.975,
		ReferenceSoC:          50,
		InitialSoC:            50,
		MinSoC:                20,
		MaxSoC:                80,
	}
}

// Params converts the section. Power limits never exceed the rated power.
func (c BessConfig) Params() model.BatteryParams {
	return model.BatteryParams{
		MaxChargeKW:    capAt(c.MaxChargingPower, c.RatedKW),
		MaxDischargeKW: capAt(c.MaxDischargingPower, c.RatedKW),
		EnergyKWh:      c.RatedKWh,
		ChargeEff:      c.ChargingEfficiency,
		DischargeEff:   c.DischargingEfficiency,
		MinSoC:         c.MinSoC,
		MaxSoC:         c.MaxSoC,
		InitialSoC:     c.InitialSoC,
		TargetSoC:      c.ReferenceSoC,
	}
}

func capAt(v, limit float64) float64 {
	if limit > 0 {
		return math.Min(v, limit)
	}
	return v
}

// TessConfig is the tess_config section. Temperatures are in °F.
type TessConfig struct {
	InitialSoC float64 `json:"initial_soc"`
	FinalSoC   float64 `json:"soc_final"`
	MinSoC     float64 `json:"min_soc"`
	MaxSoC     float64 `json:"max_soc"`
	QStor      float64 `json:"q_stor"`
	CF         float64 `json:"cf"`
	TCwCh      float64 `json:"t_cw_ch"`
	TFr        float64 `json:"t_fr"`
	TCcIn      float64 `json:"t_cc_in"`

	Parameters CurveParameters `json:"parameters"`
}

// CurveParameters holds the charge (order 5) and discharge (order 3) curve
// coefficients, lowest order first.
type CurveParameters struct {
	PCoef []float64 `json:"p_coef"`
	RCoef []float64 `json:"r_coef"`
}

// DefaultTess returns the ice tank defaults. Curve coefficients have no
// default.
func DefaultTess() TessConfig {
	return TessConfig{
		InitialSoC: 10,
		FinalSoC:   10,
		MinSoC:     10,
		MaxSoC:     90,
		QStor:      1900,
		CF:         3.915,
		TCwCh:      23,
		TFr:        32,
		TCcIn:      40,
	}
}

// ChillerConfig is the chiller_config section.
type ChillerConfig struct {
	COP              float64 `json:"COP"`
	IceMass          float64 `json:"ice_mass"`
	IceChargeRate    float64 `json:"ice_charge_rate"`
	IceDischargeRate float64 `json:"ice_discharge_rate"`
}

// ThermalParams combines the tess and chiller sections.
func ThermalParams(t TessConfig, ch ChillerConfig) model.ThermalParams {
	return model.ThermalParams{
		IceMass:          ch.IceMass,
		IceChargeRate:    ch.IceChargeRate,
		IceDischargeRate: ch.IceDischargeRate,
		CapacityKWh:      t.QStor,
		CF:               t.CF,
		COP:              ch.COP,
		ChilledWaterTemp: model.FahrenheitToCelsius(t.TCwCh),
		FreezerTemp:      model.FahrenheitToCelsius(t.TFr),
		CooledInletTemp:  model.FahrenheitToCelsius(t.TCcIn),
		ChargeCoef:       append([]float64(nil), t.Parameters.PCoef...),
		DischargeCoef:    append([]float64(nil), t.Parameters.RCoef...),
		MinSoC:           t.MinSoC,
		MaxSoC:           t.MaxSoC,
		InitialSoC:       t.InitialSoC,
		FinalSoC:         t.FinalSoC,
	}
}

// DispatchConfig converts the site sections for the optimizer.
func (c Config) DispatchConfig() (dispatch.Config, error) {
	system, err := c.System()
	if err != nil {
		return dispatch.Config{}, err
	}
	tariff, err := c.DemandRate.Schedule()
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		System:  system,
		Horizon: c.WindowLength,
		Battery: c.Bess.Params(),
		Thermal: ThermalParams(c.Tess, c.Chiller),
		Tariff:  tariff,
	}, nil
}

// StorageStates returns the initial state of every storage of the system.
// The SoC is the configured initial value until telemetry arrives.
func (c Config) StorageStates() []model.StorageState {
	system, err := c.System()
	if err != nil {
		return nil
	}
	var out []model.StorageState
	if system.HasBattery() {
		out = append(out, model.StorageState{Kind: model.StorageBattery, SoC: c.Bess.InitialSoC,
			MinSoC: c.Bess.MinSoC, MaxSoC: c.Bess.MaxSoC, TargetSoC: c.Bess.ReferenceSoC})
	}
	if system.HasThermal() {
		out = append(out, model.StorageState{Kind: model.StorageThermal, SoC: c.Tess.InitialSoC,
			MinSoC: c.Tess.MinSoC, MaxSoC: c.Tess.MaxSoC, TargetSoC: c.Tess.FinalSoC})
	}
	return out
}

// Forecast sources.
const (
	ForecastStatic = "static"
	ForecastMQTT   = "mqtt"
	// ForecastInfoAgent is accepted as an alias of ForecastMQTT.
	ForecastInfoAgent = "info_agent"
)

// ForecastConfig is the forecast_config section. Static vectors are indexed
// by clock hour.
type ForecastConfig struct {
	Source                      string    `json:"forecast_data_source"`
	PredictedPrice              []float64 `json:"predicted_price"`
	PredictedLoad               []float64 `json:"predicted_load"`
	PredictedUncontrollableLoad []float64 `json:"predicted_uncontrollable_load"`
	// ProfilePath reads the static vectors from a separate JSON or YAML file.
	ProfilePath string `json:"profile"`
}

// Streamed reports whether forecasts arrive over MQTT.
func (c ForecastConfig) Streamed() bool {
	s := strings.ToLower(c.Source)
	return s == ForecastMQTT || s == ForecastInfoAgent
}

// Profile returns the static vectors, read from ProfilePath when set.
func (c ForecastConfig) Profile() (forecast.Profile, error) {
	if c.ProfilePath != "" {
		p, err := forecast.LoadProfile(c.ProfilePath)
		if err != nil {
			return p, fmt.Errorf("%w: forecast profile: %w", model.ErrConfig, err)
		}
		return p, nil
	}
	return forecast.Profile{
		Price:              c.PredictedPrice,
		Load:               c.PredictedLoad,
		UncontrollableLoad: c.PredictedUncontrollableLoad,
	}, nil
}

// Validate checks the source and, for static forecasts, that every vector
// holds one value per hour of the window. The uncontrollable load may be
// omitted, as may the price when an external price feed is enabled.
func (c ForecastConfig) Validate(window int, priceFeed bool) error {
	switch strings.ToLower(c.Source) {
	case ForecastMQTT, ForecastInfoAgent:
		return nil
	case ForecastStatic, "":
	default:
		return fmt.Errorf("%w: unknown forecast_data_source %q", model.ErrConfig, c.Source)
	}
	if c.ProfilePath != "" {
		return nil
	}
	var errs []error
	check := func(name string, v []float64) {
		if len(v) != window {
			errs = append(errs, fmt.Errorf("%s has %d values, want %d", name, len(v), window))
		}
	}
	if !priceFeed {
		check("predicted_price", c.PredictedPrice)
	}
	check("predicted_load", c.PredictedLoad)
	if len(c.PredictedUncontrollableLoad) > 0 {
		check("predicted_uncontrollable_load", c.PredictedUncontrollableLoad)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	return nil
}
