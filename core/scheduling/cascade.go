package scheduling

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
	"github.com/Santonastaso/scheduler-demo-sub000/core/store"
)

// durationEpsilon is the change below which a duration edit is a no-op.
const durationEpsilon = 0.01

// adjacencyWindow is how close a task's start must be to the running end
// time to count as part of the adjacency chain.
const adjacencyWindow = 15 * time.Minute

// ChangeDuration edits a task's requested duration. On scheduled tasks the
// edit re-places the task at its original start; shrinking additionally
// repacks the chain of tasks that were only contiguous because of the old,
// larger footprint. A Conflict is surfaced to the caller, never swallowed:
// the caller may shunt. Mid-chain conflicts abort the operation and report
// the placements that already landed.
func (e *Engine) ChangeDuration(ctx context.Context, taskID string, newDurationHours float64) (Result, error) {
	if newDurationHours <= 0 {
		return Result{}, validationf("duration must be positive, got %.4fh", newDurationHours)
	}
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, validationf("task %s not found", taskID)
		}
		return Result{}, err
	}

	if task.Status != model.StatusScheduled || task.MachineID == "" {
		// Nothing on the calendar to repack; update the duration fields.
		task.RequestedDurationHours = newDurationHours
		task.TimeRemainingHours = newDurationHours * (1 - task.CompletionRatio())
		if err := e.store.SaveTask(ctx, task); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeSuccess, TaskID: taskID}, nil
	}

	release, err := e.lockMachine(ctx, task.MachineID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	// Re-read under the lock.
	task, err = e.store.GetTask(ctx, taskID)
	if err != nil {
		return Result{}, err
	}
	if math.Abs(newDurationHours-task.RequestedDurationHours) < durationEpsilon {
		res := successResult(taskID, task.MachineID, task.Segments)
		return res, nil
	}

	newRemaining := newDurationHours * (1 - task.CompletionRatio())
	shrinking := newRemaining < task.TimeRemainingHours
	origStart := task.ScheduledStart()
	origEnd := task.ScheduledEnd()

	var chain []model.Task
	if shrinking {
		// Collect the adjacency chain from the pre-shrink end before the
		// footprint moves.
		if chain, err = e.adjacencyChain(ctx, task, origEnd); err != nil {
			return Result{}, err
		}
	}

	res, err := e.place(ctx, placeRequest{
		taskID:        taskID,
		machineID:     task.MachineID,
		anchor:        origStart,
		durationHours: newRemaining,
		operation:     "change_duration",
		newRequested:  &newDurationHours,
		newRemaining:  &newRemaining,
	})
	if err != nil || res.Outcome != OutcomeSuccess {
		e.record(ctx, "change_duration", res, err)
		return res, err
	}
	res.Committed = []Committed{{TaskID: taskID, Segments: res.Segments}}

	if !shrinking {
		// Growth either fit into an existing gap or surfaced a conflict
		// above; no chain repacking is needed.
		e.record(ctx, "change_duration", res, err)
		return res, nil
	}

	// Chain members still sit at their old positions while the repack runs;
	// exclude the whole chain so stale footprints do not block it.
	exclude := []string{taskID}
	for _, member := range chain {
		exclude = append(exclude, member.ID)
	}
	anchor := ceil15(res.Segments[len(res.Segments)-1].End)
	for _, member := range chain {
		mres, merr := e.place(ctx, placeRequest{
			taskID:        member.ID,
			machineID:     task.MachineID,
			anchor:        anchor,
			durationHours: member.TimeRemainingHours,
			exclude:       exclude,
			operation:     "change_duration",
		})
		if merr != nil {
			e.record(ctx, "change_duration", res, merr)
			return res, merr
		}
		if mres.Outcome != OutcomeSuccess {
			// Abort the repack; report partial progress for caller-level
			// rollback or reporting.
			mres.TaskID = taskID
			mres.Committed = res.Committed
			e.record(ctx, "change_duration", mres, nil)
			return mres, nil
		}
		res.Committed = append(res.Committed, Committed{TaskID: member.ID, Segments: mres.Segments})
		anchor = ceil15(mres.Segments[len(mres.Segments)-1].End)
	}

	e.log.Infof("duration change repacked %d adjacent task(s) after %s", len(chain), taskID)
	e.record(ctx, "change_duration", res, nil)
	return res, nil
}

// adjacencyChain walks forward from the task's current end collecting the
// tasks on the same machine that start within the adjacency window of the
// running end time, transitively.
func (e *Engine) adjacencyChain(ctx context.Context, task model.Task, from time.Time) ([]model.Task, error) {
	tasks, err := e.store.ListTasksByMachine(ctx, task.MachineID)
	if err != nil {
		return nil, err
	}
	inChain := map[string]bool{task.ID: true}
	var chain []model.Task
	anchor := from
	for {
		var next *model.Task
		for i := range tasks {
			t := tasks[i]
			if t.Status != model.StatusScheduled || inChain[t.ID] {
				continue
			}
			gap := t.ScheduledStart().Sub(anchor)
			if gap < 0 {
				gap = -gap
			}
			if gap <= adjacencyWindow {
				if next == nil || t.ScheduledStart().Before(next.ScheduledStart()) {
					next = &tasks[i]
				}
			}
		}
		if next == nil {
			return chain, nil
		}
		inChain[next.ID] = true
		chain = append(chain, *next)
		anchor = next.ScheduledEnd()
	}
}
