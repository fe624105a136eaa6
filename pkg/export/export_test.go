package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/scheduler"
)

func samplePlan() *scheduler.Plan {
	start := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	return &scheduler.Plan{
		CycleID: "c1",
		Start:   start,
		Setpoints: map[model.StorageKind][]float64{
			model.StorageThermal: {-5, 0},
			model.StorageBattery: {10, -2.5},
		},
		Result: &model.DispatchResult{
			TotalPower: []float64{90, 110},
			Storages: map[model.StorageKind]model.StorageTrajectory{
				model.StorageBattery: {SoC: []float64{50, 45, 46.25}},
			},
			Status: model.StatusOptimal,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, samplePlan()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "hour,storage,setpoint_kw,soc,total_power_kw", lines[0])
	assert.Equal(t, "2025-07-01T15:00:00Z,bess,10,45,90", lines[1])
	assert.Equal(t, "2025-07-01T16:00:00Z,bess,-2.5,46.25,110", lines[2])
	assert.Equal(t, "2025-07-01T15:00:00Z,tess,-5,,90", lines[3])
}

func TestWriteCSVWithoutResult(t *testing.T) {
	p := samplePlan()
	p.Result = nil
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, p))
	assert.Contains(t, buf.String(), "2025-07-01T16:00:00Z,tess,0,,\n")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, samplePlan(), FormatJSON))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "c1", out["cycle_id"])
	assert.Contains(t, out, "setpoints")
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("out/plan.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	_, err = FormatFromPath("plan.xml")
	require.Error(t, err)
	require.Error(t, Write(&bytes.Buffer{}, samplePlan(), Format("xml")))
}
