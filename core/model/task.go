package model

import (
	"fmt"
	"math"
	"time"
)

// TaskStatus tracks a work order through its scheduling lifecycle.
type TaskStatus string

const (
	StatusNotScheduled TaskStatus = "NOT_SCHEDULED"
	StatusScheduled    TaskStatus = "SCHEDULED"
	StatusInProgress   TaskStatus = "IN_PROGRESS"
	StatusCompleted    TaskStatus = "COMPLETED"
	StatusCancelled    TaskStatus = "CANCELLED"
)

// durationTolerance is the allowed drift between the sum of segment
// durations and the task's remaining time, in hours.
const durationTolerance = 1e-2

// Task is a manufacturing work order to be scheduled on a machine.
type Task struct {
	ID                     string     `json:"id"`
	MachineID              string     `json:"machine_id,omitempty"` // empty while unassigned
	WorkCenter             string     `json:"work_center"`
	Department             string     `json:"department"`
	RequestedDurationHours float64    `json:"requested_duration_hours"`
	TimeRemainingHours     float64    `json:"time_remaining_hours"`
	Quantity               int        `json:"quantity"`
	QuantityCompleted      int        `json:"quantity_completed"`
	Status                 TaskStatus `json:"status"`
	// Segments is the ordered list of scheduled intervals. It is a
	// first-class attribute of the task, persisted as its own child
	// collection.
	Segments []Segment `json:"segments,omitempty"`
}

// ScheduledStart returns the start of the first segment, or the zero time
// when the task has none.
func (t Task) ScheduledStart() time.Time {
	if len(t.Segments) == 0 {
		return time.Time{}
	}
	return t.Segments[0].Start
}

// ScheduledEnd returns the end of the last segment, or the zero time when
// the task has none.
func (t Task) ScheduledEnd() time.Time {
	if len(t.Segments) == 0 {
		return time.Time{}
	}
	return t.Segments[len(t.Segments)-1].End
}

// OccupiedSegments returns the intervals the task holds on its machine.
// The segment list is the single source of truth for scheduled bounds;
// a task without segments occupies nothing.
func (t Task) OccupiedSegments() []Segment {
	return t.Segments
}

// CompletionRatio returns the fraction of quantity already produced.
func (t Task) CompletionRatio() float64 {
	if t.Quantity <= 0 {
		return 0
	}
	r := float64(t.QuantityCompleted) / float64(t.Quantity)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Validate checks the scheduled-task invariant: segments non-empty,
// chronologically ordered, non-overlapping, with durations summing to the
// remaining time.
func (t Task) Validate() error {
	if t.Status != StatusScheduled {
		return nil
	}
	if len(t.Segments) == 0 {
		return fmt.Errorf("task %s: scheduled without segments", t.ID)
	}
	total := 0.0
	for i, s := range t.Segments {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		if i > 0 && s.Start.Before(t.Segments[i-1].End) {
			return fmt.Errorf("task %s: segments out of order at index %d", t.ID, i)
		}
		total += s.End.Sub(s.Start).Hours()
	}
	if math.Abs(total-t.TimeRemainingHours) > durationTolerance {
		return fmt.Errorf("task %s: segment durations sum to %.4fh, want %.4fh", t.ID, total, t.TimeRemainingHours)
	}
	return nil
}

// DurationFromHours converts a fractional hour count to a time.Duration.
func DurationFromHours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
