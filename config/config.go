package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/ess-scheduler/core/factory"
	"github.com/kilianp07/ess-scheduler/core/guard"
	"github.com/kilianp07/ess-scheduler/core/metrics"
	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/scheduler"
	"github.com/kilianp07/ess-scheduler/infra/mqtt"
	"github.com/kilianp07/ess-scheduler/infra/retry"
)

// EnvPrefix prefixes environment overrides. ESS_BESS_CONFIG__MIN_SOC sets
// bess_config.min_soc.
const EnvPrefix = "ESS_"

// Config is the service configuration. Keys follow the site configuration
// of the scheduler; the remaining sections configure the runtime.
type Config struct {
	EnergyStorageSystem string  `json:"energy_storage_system"`
	Method              string  `json:"method"`
	WindowLength        int     `json:"window_length"`
	RoundingPrecision   int     `json:"rounding_precision"`
	HoursToStart        int     `json:"hours_to_start"`
	RunSchedule         string  `json:"run_schedule"`
	SoCStaleSeconds     int     `json:"soc_stale_seconds"`
	SoCMargin           float64 `json:"soc_margin"`
	TessDirectSignal    float64 `json:"tess_direct_signal"`
	Timezone            string  `json:"timezone"`

	Campus   string `json:"campus"`
	Building string `json:"building"`
	Device   string `json:"device"`

	DemandRate DemandRateConfig `json:"demand_rate_config"`
	Bess       BessConfig       `json:"bess_config"`
	Tess       TessConfig       `json:"tess_config"`
	Chiller    ChillerConfig    `json:"chiller_config"`
	Forecast   ForecastConfig   `json:"forecast_config"`

	BessSetpoints []float64 `json:"bess_setpoints"`
	TessSetpoints []float64 `json:"tess_setpoints"`

	Solver    factory.ModuleConfig `json:"solver"`
	Retry     retry.Config         `json:"retry"`
	MQTT      mqtt.Config          `json:"mqtt"`
	Telemetry TelemetryConfig      `json:"telemetry"`
	Metrics   metrics.Config       `json:"metrics"`
	Logging   LoggingConfig        `json:"logging"`
	Sentry    SentryConfig         `json:"sentry"`
	API       APIConfig            `json:"api"`
	RTE       RTEConfig            `json:"rte"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		EnergyStorageSystem: "bess",
		Method:              "control",
		WindowLength:        scheduler.DefaultHorizon,
		RoundingPrecision:   scheduler.DefaultRoundingPrecision,
		HoursToStart:        1,
		RunSchedule:         "0 0 * * *",
		SoCStaleSeconds:     int(guard.DefaultStaleAfter / time.Second),
		SoCMargin:           guard.DefaultMargin,
		TessDirectSignal:    scheduler.DefaultDirectSetpoint,
		Timezone:            "Local",
		DemandRate:          DefaultDemandRate(),
		Bess:                DefaultBess(),
		Tess:                DefaultTess(),
		Chiller:             ChillerConfig{COP: 3.5},
		Forecast:            ForecastConfig{Source: ForecastStatic},
		Solver:              factory.ModuleConfig{Type: "gonum"},
	}
}

// Load reads the file at path and overlays ESS_ environment variables.
// Keys absent from both keep their Default value.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: unsupported config format: %s", model.ErrConfig, ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults applies defaults to the runtime sections.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Logging.SetDefaults()
	c.RTE.SetDefaults()
	c.Retry.SetDefaults()
	if c.Solver.Type == "" {
		c.Solver.Type = "gonum"
	}
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	_, sysErr := c.System()
	errs = append(errs, sysErr)
	if _, err := model.ParseMethod(c.Method); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if sysErr == nil {
		if dc, err := c.DispatchConfig(); err != nil {
			errs = append(errs, err)
		} else if err := dc.Validate(); err != nil {
			errs = append(errs, err)
		}
		if sc, err := c.SchedulerConfig(); err != nil {
			errs = append(errs, err)
		} else if err := sc.Validate(); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, c.Forecast.Validate(c.WindowLength, c.RTE.Enabled))
	}
	if c.RTE.Enabled && c.WindowLength != 24 {
		errs = append(errs, fmt.Errorf("rte prices cover 24 hours, window_length is %d", c.WindowLength))
	}
	errs = append(errs, c.Logging.Validate(), c.RTE.Validate())
	if err := errors.Join(errs...); err != nil {
		if errors.Is(err, model.ErrConfig) {
			return err
		}
		return fmt.Errorf("%w: %w", model.ErrConfig, err)
	}
	return nil
}

// System returns the parsed energy_storage_system.
func (c Config) System() (model.SystemKind, error) {
	return model.ParseSystemKind(c.EnergyStorageSystem)
}

// Location returns the time zone clock hours are interpreted in.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone: %w", model.ErrConfig, err)
	}
	return loc, nil
}

// SchedulerConfig converts the configuration for the rolling scheduler.
func (c Config) SchedulerConfig() (scheduler.Config, error) {
	system, err := c.System()
	if err != nil {
		return scheduler.Config{}, err
	}
	method, err := model.ParseMethod(c.Method)
	if err != nil {
		return scheduler.Config{}, err
	}
	sc := scheduler.Config{
		System:            system,
		Method:            method,
		Horizon:           c.WindowLength,
		RoundingPrecision: c.RoundingPrecision,
		DirectSetpoint:    c.TessDirectSignal,
		COP:               c.Chiller.COP,
	}
	if method == model.MethodSchedule {
		// storages without setpoints fall back to the optimization
		sc.StaticSetpoints = make(map[model.StorageKind][]float64)
		if system.HasBattery() && len(c.BessSetpoints) > 0 {
			sc.StaticSetpoints[model.StorageBattery] = append([]float64(nil), c.BessSetpoints...)
		}
		if system.HasThermal() && len(c.TessSetpoints) > 0 {
			sc.StaticSetpoints[model.StorageThermal] = append([]float64(nil), c.TessSetpoints...)
		}
	}
	sc.SetDefaults()
	return sc, nil
}

// GuardConfig converts soc_stale_seconds and soc_margin. A negative
// soc_stale_seconds disables the staleness check and a soc_margin of zero
// lets commands run up to the SOC limits.
func (c Config) GuardConfig() guard.Config {
	gc := guard.Config{StaleAfter: time.Duration(c.SoCStaleSeconds) * time.Second, Margin: c.SoCMargin}
	if c.SoCStaleSeconds < 0 {
		gc.StaleAfter = -1
	}
	if c.SoCMargin <= 0 {
		gc.Margin = -1
	}
	gc.SetDefaults()
	return gc
}

// FirstRun returns when the first cycle runs after a start at now. Control
// waits hours_to_start hours past the current hour for streamed forecasts
// to fill, and skips the bootstrap run when hours_to_start is zero. Direct
// runs two minutes after start. Times in the past are moved to now.
func (c Config) FirstRun(now time.Time) (time.Time, bool) {
	method, _ := model.ParseMethod(c.Method)
	top := now.Truncate(time.Hour)
	var at time.Time
	switch {
	case method == model.MethodDirect:
		at = now.Add(2 * time.Minute)
	case method == model.MethodControl && c.HoursToStart <= 0:
		return time.Time{}, false
	case method == model.MethodControl && c.Forecast.Streamed():
		at = top.Add(time.Duration(c.HoursToStart)*time.Hour + 5*time.Minute)
	default:
		at = top.Add(time.Minute)
	}
	if at.Before(now) {
		at = now
	}
	return at, true
}
