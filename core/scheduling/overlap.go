package scheduling

import (
	"context"
	"sort"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
	"github.com/Santonastaso/scheduler-demo-sub000/core/store"
)

// Overlap identifies the first existing task whose occupied time intersects
// a proposed placement, together with the specific segment pair.
type Overlap struct {
	Task        model.Task
	TaskSegment model.Segment
	Candidate   model.Segment
}

// OverlapDetector checks proposed segment sets against the scheduled tasks
// already occupying a machine.
type OverlapDetector struct {
	tasks store.TaskStore
}

// NewOverlapDetector creates a detector reading from the given task store.
func NewOverlapDetector(tasks store.TaskStore) *OverlapDetector {
	return &OverlapDetector{tasks: tasks}
}

// FindOverlap reports the first scheduled task on the machine, outside the
// excluded set, whose occupied segments intersect any candidate segment.
// Ties break toward the earliest-starting existing task. A nil overlap
// means the candidate fits. The check applies to single-segment candidates
// too: an unsplit placement is not exempt.
func (d *OverlapDetector) FindOverlap(ctx context.Context, segments []model.Segment, machineID string, exclude []string) (*Overlap, error) {
	tasks, err := d.tasks.ListTasksByMachine(ctx, machineID)
	if err != nil {
		return nil, err
	}
	return findOverlapIn(tasks, segments, exclude), nil
}

// findOverlapIn is the pure core of the detector, shared with the
// resolver's shunt simulation which checks against hypothetical task lists.
func findOverlapIn(tasks []model.Task, segments []model.Segment, exclude []string) *Overlap {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	candidates := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != model.StatusScheduled || skip[t.ID] {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := candidates[i].ScheduledStart(), candidates[j].ScheduledStart()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return candidates[i].ID < candidates[j].ID
	})
	for _, t := range candidates {
		for _, occupied := range t.OccupiedSegments() {
			for _, c := range segments {
				if c.Overlaps(occupied) {
					return &Overlap{Task: t, TaskSegment: occupied, Candidate: c}
				}
			}
		}
	}
	return nil
}
