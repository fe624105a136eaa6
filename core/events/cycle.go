package events

import (
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// CycleCompleted is published at the end of every scheduling cycle.
// Result is nil when the cycle was skipped or the solve failed.
type CycleCompleted struct {
	CycleID  string
	At       time.Time
	System   model.SystemKind
	Method   model.Method
	Result   *model.DispatchResult
	Duration time.Duration
	Err      error
}
