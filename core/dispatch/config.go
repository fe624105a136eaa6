package dispatch

import (
	"errors"
	"fmt"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// Config defines the dispatch formulation of a site.
type Config struct {
	System  model.SystemKind
	Horizon int
	Battery model.BatteryParams
	Thermal model.ThermalParams
	Tariff  model.DemandRateSchedule
}

// Validate checks the parameters used by the configured system.
func (c Config) Validate() error {
	var errs []error
	if c.Horizon <= 0 {
		errs = append(errs, fmt.Errorf("%w: window length must be positive", model.ErrConfig))
	}
	switch c.System {
	case model.SystemBattery:
		errs = append(errs, c.Battery.Validate())
	case model.SystemThermal:
		errs = append(errs, c.Thermal.Validate())
	case model.SystemHybrid:
		errs = append(errs, c.Battery.Validate(), c.Thermal.Validate())
	default:
		errs = append(errs, fmt.Errorf("%w: unknown system %d", model.ErrConfig, c.System))
	}
	errs = append(errs, c.Tariff.Validate())
	return errors.Join(errs...)
}
