package scheduler

import (
	"errors"
	"fmt"

	"github.com/kilianp07/ess-scheduler/core/model"
)

const (
	DefaultHorizon           = 24
	DefaultRoundingPrecision = 2
	DefaultDirectSetpoint    = 10
)

// Config defines how plans are turned into commands.
type Config struct {
	System  model.SystemKind
	Method  model.Method
	Horizon int
	// RoundingPrecision is the number of decimals kept in setpoints.
	RoundingPrecision int
	DirectSetpoint    float64
	// COP converts thermal charge setpoints to electrical power.
	COP float64
	// StaticSetpoints replace the optimization in schedule mode. They are
	// indexed by clock hour.
	StaticSetpoints map[model.StorageKind][]float64
}

// SetDefaults applies defaults to zero values.
func (c *Config) SetDefaults() {
	if c.Horizon == 0 {
		c.Horizon = DefaultHorizon
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Horizon <= 0 {
		errs = append(errs, fmt.Errorf("horizon must be positive, got %d", c.Horizon))
	}
	if c.RoundingPrecision < 0 || c.RoundingPrecision > 9 {
		errs = append(errs, fmt.Errorf("rounding_precision must be in [0,9], got %d", c.RoundingPrecision))
	}
	if c.System.HasThermal() && c.COP <= 0 {
		errs = append(errs, errors.New("thermal storage requires a positive COP"))
	}
	for kind, sp := range c.StaticSetpoints {
		if !hasStorage(c.System, kind) {
			errs = append(errs, fmt.Errorf("static setpoints for %s but system is %s", kind, c.System))
			continue
		}
		if len(sp) != c.Horizon {
			errs = append(errs, fmt.Errorf("%s static setpoints have %d values, want %d", kind, len(sp), c.Horizon))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", model.ErrConfig, errors.Join(errs...))
	}
	return nil
}

func hasStorage(system model.SystemKind, kind model.StorageKind) bool {
	for _, k := range system.Storages() {
		if k == kind {
			return true
		}
	}
	return false
}
