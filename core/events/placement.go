package events

import (
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

// PlacementEvent is published when a placement attempt resolves.
type PlacementEvent struct {
	TaskID    string
	MachineID string
	Operation string
	Outcome   string
	Segments  []model.Segment
	WasSplit  bool
}

// ConflictEvent is published when a proposed placement intersects an
// existing scheduled task.
type ConflictEvent struct {
	TaskID            string
	MachineID         string
	ConflictingTaskID string
	ProposedStart     time.Time
}
