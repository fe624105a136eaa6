package forecast

import (
	"fmt"
	"math"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// Fill replaces NaN entries with the previous valid value, then fills any
// leading NaN with the next valid value. Valid entries are never changed.
// An all-NaN input is returned unchanged.
func Fill(seq []float64) []float64 {
	out := make([]float64, len(seq))
	copy(out, seq)
	last := math.NaN()
	for i, v := range out {
		if math.IsNaN(v) {
			if !math.IsNaN(last) {
				out[i] = last
			}
			continue
		}
		last = v
	}
	last = math.NaN()
	for i := len(out) - 1; i >= 0; i-- {
		if math.IsNaN(out[i]) {
			if !math.IsNaN(last) {
				out[i] = last
			}
			continue
		}
		last = out[i]
	}
	return out
}

// Rotate returns seq[offset:] followed by seq[:offset]. The offset is taken
// modulo the length, so negative offsets rotate the other way.
func Rotate(seq []float64, offset int) []float64 {
	n := len(seq)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	k := ((offset % n) + n) % n
	copy(out, seq[k:])
	copy(out[n-k:], seq[:k])
	return out
}

// Raw holds unaligned forecast vectors indexed by clock hour.
type Raw struct {
	Price              []float64
	Load               []float64
	UncontrollableLoad []float64
}

// Align fills and rotates every vector so that index 0 is hour and checks
// that the result is a complete window of h values.
func Align(raw Raw, hour, h int) (model.ForecastWindow, error) {
	if h <= 0 {
		return model.ForecastWindow{}, fmt.Errorf("%w: horizon must be positive", model.ErrData)
	}
	unc := raw.UncontrollableLoad
	if len(unc) == 0 {
		unc = make([]float64, len(raw.Load))
	}
	fields := []struct {
		name model.ForecastField
		v    []float64
	}{
		{model.FieldPrice, raw.Price},
		{model.FieldLoad, raw.Load},
		{model.FieldUncontrollableLoad, unc},
	}
	aligned := make([][]float64, len(fields))
	for i, f := range fields {
		if len(f.v) != h {
			return model.ForecastWindow{}, fmt.Errorf("%w: %s forecast has %d values, want %d", model.ErrData, f.name, len(f.v), h)
		}
		aligned[i] = Rotate(Fill(f.v), hour)
	}
	w := model.NewForecastWindow(aligned[0], aligned[1], aligned[2])
	if err := w.Validate(h); err != nil {
		return model.ForecastWindow{}, err
	}
	return w, nil
}
