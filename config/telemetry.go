package config

import (
	"github.com/kilianp07/ess-scheduler/core/model"
)

// Default telemetry topics and JSON points.
const (
	DefaultTessTopic               = "devices/PNNL/SEB/TSS/SUPERVISORY_CONTROLLER/all"
	DefaultTessPoint               = "IceTankPercentCharge"
	DefaultBessTopic               = "devices/PNNL/SEB/BESS/all"
	DefaultBessPoint               = "BAT_SOC"
	DefaultPriceTopic              = "devices/PNNL/grid_information/price/all"
	DefaultPricePoint              = "tou"
	DefaultLoadForecastTopic       = "devices/PNNL/SEB/forecast/all"
	DefaultLoadForecastPoint       = "load"
	DefaultUncontrollableLoadPoint = "uncontrollable_load"
)

// TelemetryConfig holds the topics the telemetry manager subscribes to.
// Forecast topics are only used when the forecast data source is "mqtt".
type TelemetryConfig struct {
	Enabled bool `json:"enabled"`
	QoS     byte `json:"qos"`

	TessTopic string `json:"tess_topic"`
	TessPoint string `json:"tess_point"`
	BessTopic string `json:"bess_topic"`
	BessPoint string `json:"soc_point_name"`

	PriceTopic              string `json:"price_topic"`
	PricePoint              string `json:"price_point"`
	LoadForecastTopic       string `json:"load_forecast_topic"`
	LoadForecastPoint       string `json:"load_forecast_point"`
	UncontrollableLoadPoint string `json:"uncontrollable_load_forecast_point"`
}

// SetDefaults fills empty topics and points.
func (c *TelemetryConfig) SetDefaults() {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&c.TessTopic, DefaultTessTopic)
	def(&c.TessPoint, DefaultTessPoint)
	def(&c.BessTopic, DefaultBessTopic)
	def(&c.BessPoint, DefaultBessPoint)
	def(&c.PriceTopic, DefaultPriceTopic)
	def(&c.PricePoint, DefaultPricePoint)
	def(&c.LoadForecastTopic, DefaultLoadForecastTopic)
	def(&c.LoadForecastPoint, DefaultLoadForecastPoint)
	def(&c.UncontrollableLoadPoint, DefaultUncontrollableLoadPoint)
}

// SoCSource describes where the state of charge of a storage kind is read.
type SoCSource struct {
	Kind  model.StorageKind
	Topic string
	Point string
}

// ForecastSource describes where a streamed forecast field is read.
type ForecastSource struct {
	Field model.ForecastField
	Topic string
	Point string
}

// SoCSources returns the sources for the storages of system.
func (c TelemetryConfig) SoCSources(system model.SystemKind) []SoCSource {
	var out []SoCSource
	if system.HasBattery() {
		out = append(out, SoCSource{Kind: model.StorageBattery, Topic: c.BessTopic, Point: c.BessPoint})
	}
	if system.HasThermal() {
		out = append(out, SoCSource{Kind: model.StorageThermal, Topic: c.TessTopic, Point: c.TessPoint})
	}
	return out
}

// ForecastSources returns the streamed forecast sources.
func (c TelemetryConfig) ForecastSources() []ForecastSource {
	return []ForecastSource{
		{Field: model.FieldPrice, Topic: c.PriceTopic, Point: c.PricePoint},
		{Field: model.FieldLoad, Topic: c.LoadForecastTopic, Point: c.LoadForecastPoint},
		{Field: model.FieldUncontrollableLoad, Topic: c.LoadForecastTopic, Point: c.UncontrollableLoadPoint},
	}
}
