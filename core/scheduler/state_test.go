package scheduler

import (
	"math"
	"testing"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStoreAcceptsNewerSamplesOnly(t *testing.T) {
	s := NewStateStore(4)
	s.SetStorage(model.StorageState{Kind: model.StorageBattery, SoC: 50, MinSoC: 20, MaxSoC: 80, TargetSoC: 50})
	t0 := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	require.True(t, s.UpdateSoC(model.SoCSample{Kind: model.StorageBattery, SoC: 55, At: t0}))
	assert.False(t, s.UpdateSoC(model.SoCSample{Kind: model.StorageBattery, SoC: 60, At: t0}), "same timestamp")
	assert.False(t, s.UpdateSoC(model.SoCSample{Kind: model.StorageBattery, SoC: 60, At: t0.Add(-time.Minute)}), "older sample")
	assert.False(t, s.UpdateSoC(model.SoCSample{Kind: model.StorageBattery, SoC: math.NaN(), At: t0.Add(time.Minute)}), "NaN sample")

	st := s.StorageState(model.StorageBattery)
	assert.Equal(t, 55.0, st.SoC)
	assert.Equal(t, t0, st.UpdatedAt)
	assert.Equal(t, 20.0, st.MinSoC, "limits survive updates")

	require.True(t, s.UpdateSoC(model.SoCSample{Kind: model.StorageThermal, SoC: 30, At: t0}))
	assert.Equal(t, 100.0, s.StorageState(model.StorageThermal).MaxSoC)
}

func TestStateStoreSnapshotIsCopy(t *testing.T) {
	s := NewStateStore(3)
	price := []float64{1, 2, 3}
	s.SetForecast(model.FieldPrice, price)
	price[0] = 99

	snap := s.Snapshot()
	require.Equal(t, []float64{1, 2, 3}, snap.Forecast.Price)
	snap.Forecast.Price[1] = -1
	assert.Equal(t, []float64{1, 2, 3}, s.Snapshot().Forecast.Price)
	assert.Nil(t, snap.Forecast.Load)
	assert.False(t, snap.State(model.StorageBattery).Known())
}

func TestStateStoreStreamsOverrideStatic(t *testing.T) {
	s := NewStateStore(3)
	s.SetForecast(model.FieldLoad, []float64{5, 5, 5})
	s.PushForecast(model.FieldLoad, 7)
	s.PushForecast(model.FieldLoad, 8)

	load := s.Snapshot().Forecast.Load
	require.Len(t, load, 3)
	assert.Equal(t, 7.0, load[0])
	assert.Equal(t, 8.0, load[1])
	assert.True(t, math.IsNaN(load[2]), "missing values are NaN until filled")

	for _, v := range []float64{9, 10} {
		s.PushForecast(model.FieldLoad, v)
	}
	assert.Equal(t, []float64{8, 9, 10}, s.Snapshot().Forecast.Load)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{System: model.SystemHybrid, COP: 3.5}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultHorizon, cfg.Horizon)

	bad := Config{System: model.SystemThermal, Horizon: 4, RoundingPrecision: -1,
		StaticSetpoints: map[model.StorageKind][]float64{
			model.StorageBattery: {1, 2, 3, 4},
			model.StorageThermal: {1},
		}}
	err := bad.Validate()
	require.ErrorIs(t, err, model.ErrConfig)
	for _, want := range []string{"rounding_precision", "COP", "static setpoints for bess", "tess static setpoints have 1"} {
		assert.Contains(t, err.Error(), want)
	}
}
