package scheduler

import (
	"math"
	"sync"

	"github.com/kilianp07/ess-scheduler/core/forecast"
	"github.com/kilianp07/ess-scheduler/core/model"
)

// StateStore holds the forecasts and storage states shared between
// telemetry and the scheduling loop.
type StateStore struct {
	mu      sync.RWMutex
	horizon int
	static  map[model.ForecastField][]float64
	streams map[model.ForecastField]*forecast.Ring
	states  map[model.StorageKind]model.StorageState
}

// Snapshot is a copy of the store taken at the start of a cycle.
type Snapshot struct {
	Forecast forecast.Raw
	States   map[model.StorageKind]model.StorageState
}

// State returns the snapshot state of kind, or the zero state.
func (s Snapshot) State(kind model.StorageKind) model.StorageState {
	return s.States[kind]
}

// NewStateStore creates a store whose streamed forecasts keep horizon values.
func NewStateStore(horizon int) *StateStore {
	return &StateStore{
		horizon: horizon,
		static:  make(map[model.ForecastField][]float64),
		streams: make(map[model.ForecastField]*forecast.Ring),
		states:  make(map[model.StorageKind]model.StorageState),
	}
}

// SetStorage registers a storage device with its limits and initial SoC.
func (s *StateStore) SetStorage(st model.StorageState) {
	s.mu.Lock()
	s.states[st.Kind] = st
	s.mu.Unlock()
}

// SetForecast sets a static forecast vector indexed by clock hour.
func (s *StateStore) SetForecast(field model.ForecastField, values []float64) {
	cp := make([]float64, len(values))
	copy(cp, values)
	s.mu.Lock()
	s.static[field] = cp
	s.mu.Unlock()
}

// PushForecast appends a streamed forecast value. Streamed values take
// precedence over the static vector of the same field.
func (s *StateStore) PushForecast(field model.ForecastField, v float64) {
	s.mu.Lock()
	r, ok := s.streams[field]
	if !ok {
		r = forecast.NewRing(s.horizon)
		s.streams[field] = r
	}
	s.mu.Unlock()
	r.Push(v)
}

// UpdateSoC stores the sample if it is newer than the last accepted one.
func (s *StateStore) UpdateSoC(sample model.SoCSample) bool {
	if math.IsNaN(sample.SoC) || math.IsInf(sample.SoC, 0) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[sample.Kind]
	if !ok {
		st = model.StorageState{Kind: sample.Kind, MaxSoC: 100}
	}
	if !sample.At.After(st.UpdatedAt) {
		return false
	}
	st.SoC = sample.SoC
	st.UpdatedAt = sample.At
	s.states[sample.Kind] = st
	return true
}

// StorageState returns the latest state of kind.
func (s *StateStore) StorageState(kind model.StorageKind) model.StorageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[kind]
}

// Snapshot copies forecasts and states.
func (s *StateStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{States: make(map[model.StorageKind]model.StorageState, len(s.states))}
	for k, v := range s.states {
		snap.States[k] = v
	}
	snap.Forecast = forecast.Raw{
		Price:              s.field(model.FieldPrice),
		Load:               s.field(model.FieldLoad),
		UncontrollableLoad: s.field(model.FieldUncontrollableLoad),
	}
	return snap
}

func (s *StateStore) field(f model.ForecastField) []float64 {
	if r, ok := s.streams[f]; ok && r.Len() > 0 {
		return r.Values()
	}
	v, ok := s.static[f]
	if !ok {
		return nil
	}
	cp := make([]float64, len(v))
	copy(cp, v)
	return cp
}
