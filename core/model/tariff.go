package model

import (
	"fmt"
	"strings"
)

// TariffMode selects how demand charges are computed.
type TariffMode string

const (
	TariffFlat TariffMode = "flat"
	TariffTOU  TariffMode = "tou"
)

// ParseTariffMode maps the type_of_demand_rate configuration value.
func ParseTariffMode(s string) (TariffMode, error) {
	switch TariffMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", TariffFlat:
		return TariffFlat, nil
	case TariffTOU:
		return TariffTOU, nil
	default:
		return "", fmt.Errorf("%w: unknown demand rate type %q", ErrConfig, s)
	}
}

// HourWindow is a clock-hour range [Start, Stop).
type HourWindow struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

// Contains reports whether the clock hour h falls in the window. Windows
// with Stop < Start wrap around midnight.
func (w HourWindow) Contains(h int) bool {
	h = ((h % 24) + 24) % 24
	if w.Start <= w.Stop {
		return h >= w.Start && h < w.Stop
	}
	return h >= w.Start || h < w.Stop
}

// DemandPeriod is a TOU period with its monthly demand rate.
type DemandPeriod struct {
	Name   string
	Window HourWindow
	Rate   float64 // per month
}

// DemandRateSchedule holds the demand charge configuration.
type DemandRateSchedule struct {
	Mode TariffMode
	// FlatRate is the monthly demand charge applied to the horizon peak.
	FlatRate float64
	// PeakRate and PartialRate are the monthly TOU rates.
	PeakRate    float64
	PartialRate float64

	Peak     HourWindow
	Partial1 HourWindow
	Partial2 HourWindow
}

// Periods returns the TOU periods in a stable order.
func (s DemandRateSchedule) Periods() []DemandPeriod {
	return []DemandPeriod{
		{Name: "peak", Window: s.Peak, Rate: s.PeakRate},
		{Name: "partial_peak_1", Window: s.Partial1, Rate: s.PartialRate},
		{Name: "partial_peak_2", Window: s.Partial2, Rate: s.PartialRate},
	}
}

// Validate checks rates and windows.
func (s DemandRateSchedule) Validate() error {
	if s.Mode != TariffFlat && s.Mode != TariffTOU {
		return fmt.Errorf("%w: unknown demand rate type %q", ErrConfig, s.Mode)
	}
	if s.FlatRate < 0 || s.PeakRate < 0 || s.PartialRate < 0 {
		return fmt.Errorf("%w: demand rates must be non-negative", ErrConfig)
	}
	for _, w := range []HourWindow{s.Peak, s.Partial1, s.Partial2} {
		if w.Start < 0 || w.Start > 23 || w.Stop < 0 || w.Stop > 24 {
			return fmt.Errorf("%w: demand window [%d,%d) out of range", ErrConfig, w.Start, w.Stop)
		}
	}
	return nil
}
