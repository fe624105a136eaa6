package logging

import (
	"context"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
)

// RecordKind distinguishes cycle records from command records.
type RecordKind string

const (
	KindCycle   RecordKind = "cycle"
	KindCommand RecordKind = "command"
)

// LogRecord captures one scheduling cycle or one actuation command.
type LogRecord struct {
	Timestamp time.Time  `json:"timestamp"`
	Kind      RecordKind `json:"kind"`
	CycleID   string     `json:"cycle_id"`
	System    string     `json:"system,omitempty"`
	Method    string     `json:"method,omitempty"`
	// Outcome is planned, skipped or failed for cycles and executed,
	// suppressed or failed for commands.
	Outcome   string                  `json:"outcome"`
	Error     string                  `json:"error,omitempty"`
	Status    string                  `json:"status,omitempty"`
	Objective float64                 `json:"objective,omitempty"`
	Setpoints map[string][]float64    `json:"setpoints,omitempty"`
	Command   *model.ActuationCommand `json:"command,omitempty"`
	Reason    string                  `json:"reason,omitempty"`
}

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start   time.Time
	End     time.Time
	Kind    RecordKind
	CycleID string
	Storage model.StorageKind
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// matches applies the filters that are not pushed down to storage.
func (q LogQuery) matches(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.CycleID != "" && r.CycleID != q.CycleID {
		return false
	}
	if q.Storage != "" {
		if r.Command != nil {
			return r.Command.Storage == q.Storage
		}
		_, ok := r.Setpoints[string(q.Storage)]
		return ok
	}
	return true
}
