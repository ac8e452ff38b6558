// Package logging persists an audit trail of scheduling decisions: every
// placement, duration change and shunt outcome is appended as one record.
package logging

import (
	"context"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

// LogRecord captures one scheduling decision and its outcome.
type LogRecord struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Operation     string          `json:"operation"`
	TaskID        string          `json:"task_id"`
	MachineID     string          `json:"machine_id"`
	Outcome       string          `json:"outcome"`
	Direction     string          `json:"direction,omitempty"`
	Segments      []model.Segment `json:"segments,omitempty"`
	WasSplit      bool            `json:"was_split,omitempty"`
	ConflictingID string          `json:"conflicting_task_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Committed     []string        `json:"committed,omitempty"`
}

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start     time.Time
	End       time.Time
	MachineID string
	TaskID    string
	Operation string
}

// Matches reports whether the record passes every set filter.
func (q LogQuery) Matches(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.MachineID != "" && r.MachineID != q.MachineID {
		return false
	}
	if q.TaskID != "" && r.TaskID != q.TaskID {
		return false
	}
	if q.Operation != "" && r.Operation != q.Operation {
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
