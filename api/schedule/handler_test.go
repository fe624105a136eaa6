package schedule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/scheduler"
)

type fakeSource struct {
	plan    *scheduler.Plan
	pending []model.ActuationCommand
}

func (f fakeSource) Latest() *scheduler.Plan           { return f.plan }
func (f fakeSource) Pending() []model.ActuationCommand { return f.pending }

func TestScheduleHandler(t *testing.T) {
	start := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	src := fakeSource{
		plan: &scheduler.Plan{CycleID: "c1", Start: start, Setpoints: map[model.StorageKind][]float64{model.StorageBattery: {5, -5}}},
		pending: []model.ActuationCommand{
			model.NewCommand(model.StorageBattery, -5, start.Add(time.Hour), 1),
		},
	}
	h := NewHandler(src, "tok")

	req := httptest.NewRequest("GET", "/schedule", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var out Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotNil(t, out.Plan)
	assert.Equal(t, "c1", out.Plan.CycleID)
	require.Len(t, out.Pending, 1)
	assert.Equal(t, -5.0, out.Pending[0].Setpoint)

	req = httptest.NewRequest("GET", "/schedule?format=csv", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "hour,storage"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/schedule", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestScheduleHandlerBeforeFirstCycle(t *testing.T) {
	h := NewHandler(fakeSource{}, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/schedule", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"plan":null,"pending":null}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/schedule?format=csv", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
