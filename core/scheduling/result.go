package scheduling

import (
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

// Outcome discriminates the result of a scheduling operation. Conflicts and
// insufficient space are expected business outcomes carried as data, never
// as Go errors.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeConflict Outcome = "conflict"
	OutcomeFailure  Outcome = "failure"
)

// Direction selects which way a shunt displaces the affected chain.
type Direction string

const (
	DirectionRight Direction = "right" // increasing time
	DirectionLeft  Direction = "left"  // decreasing time
)

// Valid reports whether the direction is one of the two known values.
func (d Direction) Valid() bool { return d == DirectionRight || d == DirectionLeft }

// Conflict names the existing task blocking a proposed placement, the
// specific overlapping segment pair, and the candidate that was rejected.
type Conflict struct {
	TaskID             string          `json:"task_id"`
	MachineID          string          `json:"machine_id"`
	ConflictingTaskID  string          `json:"conflicting_task_id"`
	ConflictingSegment model.Segment   `json:"conflicting_segment"`
	ProposedSegment    model.Segment   `json:"proposed_segment"`
	ProposedSegments   []model.Segment `json:"proposed_segments"`
	ProposedStart      time.Time       `json:"proposed_start"`
	DurationHours      float64         `json:"duration_hours"`
}

// Failure reports that no arrangement could satisfy the request, with
// enough context for the caller to present actionable choices.
type Failure struct {
	Reason        string `json:"reason"`
	MachineID     string `json:"machine_id"`
	BlockingTasks int    `json:"blocking_tasks"`
}

// Committed records one task whose segments were persisted during a batch
// operation, so failure paths can report which updates already landed.
type Committed struct {
	TaskID   string          `json:"task_id"`
	Segments []model.Segment `json:"segments"`
}

// Result is the discriminated outcome of Place, PlaceEndingAt,
// ChangeDuration and Shunt.
type Result struct {
	Outcome   Outcome         `json:"outcome"`
	TaskID    string          `json:"task_id"`
	MachineID string          `json:"machine_id"`
	Segments  []model.Segment `json:"segments,omitempty"`
	WasSplit  bool            `json:"was_split,omitempty"`
	Conflict  *Conflict       `json:"conflict,omitempty"`
	Failure   *Failure        `json:"failure,omitempty"`
	// Committed lists every placement persisted by the operation, including
	// partial progress before a mid-batch conflict or failure.
	Committed []Committed `json:"committed,omitempty"`
}

func successResult(taskID, machineID string, segs []model.Segment) Result {
	return Result{
		Outcome:   OutcomeSuccess,
		TaskID:    taskID,
		MachineID: machineID,
		Segments:  segs,
		WasSplit:  len(segs) > 1,
	}
}

func conflictResult(taskID, machineID string, c Conflict) Result {
	return Result{Outcome: OutcomeConflict, TaskID: taskID, MachineID: machineID, Conflict: &c}
}

func failureResult(taskID, machineID string, f Failure) Result {
	return Result{Outcome: OutcomeFailure, TaskID: taskID, MachineID: machineID, Failure: &f}
}
