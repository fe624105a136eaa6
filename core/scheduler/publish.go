package scheduler

import (
	"context"
	"math"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// durationKey is published per hour when the plan is followed by the
// controller itself.
const durationKey = "duration_in_seconds"

// Publisher publishes the schedule of a cycle.
type Publisher interface {
	PublishSchedule(ctx context.Context, s model.Schedule) error
}

// buildSchedule returns one entry per planned hour starting at start.
func buildSchedule(method model.Method, start time.Time, horizon int, setpoints map[model.StorageKind][]float64, kinds []model.StorageKind) model.Schedule {
	out := make(model.Schedule, horizon)
	for i := 0; i < horizon; i++ {
		key := model.HourKey(start.Add(time.Duration(i) * time.Hour))
		entry := make(map[string]float64, len(kinds))
		switch method {
		case model.MethodControl:
			entry[durationKey] = 3600
		case model.MethodSchedule:
			for _, k := range kinds {
				if sp := setpoints[k]; i < len(sp) {
					entry[string(k)+"_setpoints"] = sp[i]
				}
			}
		}
		out[key] = entry
	}
	return out
}

// roundTo rounds v to the given number of decimals. Negative zero is
// returned as zero.
func roundTo(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0
	}
	return r
}

// commandSetpoints converts a plan into actuator setpoints. Thermal charge
// setpoints are converted to electrical power with the chiller COP.
func commandSetpoints(res *model.DispatchResult, kinds []model.StorageKind, cop float64, precision int) map[model.StorageKind][]float64 {
	out := make(map[model.StorageKind][]float64, len(kinds))
	for _, k := range kinds {
		sp := res.Setpoints(k)
		for i, v := range sp {
			if k == model.StorageThermal && v < 0 {
				v /= cop
			}
			sp[i] = roundTo(v, precision)
		}
		out[k] = sp
	}
	return out
}
