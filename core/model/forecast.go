package model

import (
	"fmt"
	"math"
)

// ForecastWindow holds hourly forecasts aligned to the start of a cycle.
// The cooling load is derived from the load and uncontrollable load and is
// recomputed whenever one of them changes.
type ForecastWindow struct {
	price          []float64
	load           []float64
	uncontrollable []float64
	cooling        []float64
}

// NewForecastWindow copies the provided vectors. A nil uncontrollable load
// defaults to zeros.
func NewForecastWindow(price, load, uncontrollable []float64) ForecastWindow {
	w := ForecastWindow{
		price: clone(price),
		load:  clone(load),
	}
	if uncontrollable == nil {
		uncontrollable = make([]float64, len(load))
	}
	w.uncontrollable = clone(uncontrollable)
	w.recompute()
	return w
}

// Len returns the horizon length H.
func (w ForecastWindow) Len() int { return len(w.price) }

func (w ForecastWindow) Price() []float64              { return clone(w.price) }
func (w ForecastWindow) Load() []float64               { return clone(w.load) }
func (w ForecastWindow) UncontrollableLoad() []float64 { return clone(w.uncontrollable) }
func (w ForecastWindow) CoolingLoad() []float64        { return clone(w.cooling) }

// SetLoad replaces the load forecast and recomputes the cooling load.
func (w *ForecastWindow) SetLoad(load []float64) {
	w.load = clone(load)
	w.recompute()
}

// SetUncontrollableLoad replaces the uncontrollable load forecast and
// recomputes the cooling load.
func (w *ForecastWindow) SetUncontrollableLoad(load []float64) {
	w.uncontrollable = clone(load)
	w.recompute()
}

func (w *ForecastWindow) recompute() {
	n := len(w.load)
	w.cooling = make([]float64, n)
	for i := 0; i < n; i++ {
		u := 0.0
		if i < len(w.uncontrollable) {
			u = w.uncontrollable[i]
		}
		w.cooling[i] = w.load[i] - u
	}
}

// Validate checks that every vector has length h and contains no NaN.
func (w ForecastWindow) Validate(h int) error {
	fields := []struct {
		name string
		v    []float64
	}{
		{"price", w.price},
		{"load", w.load},
		{"uncontrollable_load", w.uncontrollable},
		{"cooling_load", w.cooling},
	}
	for _, f := range fields {
		if len(f.v) != h {
			return fmt.Errorf("%w: %s has %d values, want %d", ErrData, f.name, len(f.v), h)
		}
		for i, x := range f.v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: %s[%d] is not a number", ErrData, f.name, i)
			}
		}
	}
	return nil
}

func clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// ForecastField identifies one of the forecast inputs.
type ForecastField string

const (
	FieldPrice              ForecastField = "price"
	FieldLoad               ForecastField = "load"
	FieldUncontrollableLoad ForecastField = "uncontrollable_load"
)
