package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Santonastaso/scheduler-demo-sub000/core/events"
	"github.com/Santonastaso/scheduler-demo-sub000/core/logger"
	coremetrics "github.com/Santonastaso/scheduler-demo-sub000/core/metrics"
	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
	"github.com/Santonastaso/scheduler-demo-sub000/core/scheduling/logging"
)

// ShuntRequest asks the resolver to clear room for the dragged task at its
// proposed position by displacing work in one direction. Shunting right
// slides the dragged task past the blocking task and pushes the blocker's
// successors out of the way; shunting left keeps the dragged task at its
// proposed start and packs the blocker and its predecessors earlier.
type ShuntRequest struct {
	TaskID        string    `json:"task_id"`
	MachineID     string    `json:"machine_id"`
	Start         time.Time `json:"start"`
	DurationHours float64   `json:"duration_hours"`
	Direction     Direction `json:"direction"`
}

// ConflictResolver implements directional shunting. Cascading conflicts are
// handled by an explicit bounded loop that folds each secondary conflict
// into the affected set, never by call-stack recursion, so the termination
// bound stays auditable.
type ConflictResolver struct {
	engine *Engine
	log    logger.Logger
}

// NewConflictResolver creates a resolver over the engine.
func NewConflictResolver(e *Engine, log logger.Logger) (*ConflictResolver, error) {
	if e == nil || log == nil {
		return nil, fmt.Errorf("scheduling: nil parameter provided to NewConflictResolver")
	}
	return &ConflictResolver{engine: e, log: log}, nil
}

// tentative is one planned placement within a shunt batch.
type tentative struct {
	taskID        string
	anchor        time.Time
	backward      bool
	durationHours float64
	segments      []model.Segment
}

// shuntSeed fixes what the directional walk decided: the task blocking the
// proposed position, the set of tasks that must move, and (rightward) the
// instant the dragged task is inserted at.
type shuntSeed struct {
	blockerID   string
	affected    map[string]bool
	rightAnchor time.Time
}

// Shunt resolves the conflict between the dragged task's proposed position
// and the existing schedule. On success every displaced task sits on the
// 15-minute grid and no task's duration has been reduced; the set of tasks
// on the machine is unchanged. Failures report the blocking task count and
// never silently truncate. Partial commits are listed in Result.Committed.
func (r *ConflictResolver) Shunt(ctx context.Context, req ShuntRequest) (Result, error) {
	if !req.Direction.Valid() {
		return Result{}, validationf("unknown shunt direction %q", req.Direction)
	}
	if req.DurationHours <= 0 {
		return Result{}, validationf("duration must be positive, got %.4fh", req.DurationHours)
	}
	release, err := r.engine.lockMachine(ctx, req.MachineID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	res, depth, affected, err := r.resolve(ctx, req)
	r.record(ctx, req, res, depth, affected, err)
	return res, err
}

// resolve runs the bounded shunt loop: seed the affected set with the
// directional walk, plan with the transitive-conflict closure, commit, and
// on a commit-time conflict fold the blocker into the affected set and try
// again up to the cascade depth bound.
func (r *ConflictResolver) resolve(ctx context.Context, req ShuntRequest) (Result, int, int, error) {
	seed, direct, err := r.seed(ctx, req)
	if err != nil {
		return Result{}, 0, 0, err
	}
	if direct != nil {
		// The proposed position is free or provably unusable; no
		// displacement is needed or possible.
		return *direct, 0, 0, nil
	}

	var committed []Committed
	var lastConflict *Conflict
	for depth := 0; depth <= maxCascadeDepth; depth++ {
		plan, failRes, err := r.plan(ctx, req, seed)
		if err != nil {
			return Result{}, depth, len(seed.affected), err
		}
		if failRes != nil {
			failRes.Committed = committed
			return *failRes, depth, len(seed.affected), nil
		}

		conflict, err := r.commit(ctx, req, plan, seed, &committed)
		if err != nil {
			res := Result{Outcome: OutcomeFailure, TaskID: req.TaskID, MachineID: req.MachineID, Committed: committed}
			return res, depth, len(seed.affected), err
		}
		if conflict == nil {
			res := successResult(req.TaskID, req.MachineID, lastSegments(committed, req.TaskID))
			res.Committed = committed
			cascadeDepth.Observe(float64(depth))
			shuntAffected.Observe(float64(len(seed.affected)))
			return res, depth, len(seed.affected), nil
		}

		// Cascading shunting: the displaced chain ran into a task outside
		// the set. Fold it in and re-plan.
		lastConflict = conflict
		if !seed.affected[conflict.ConflictingTaskID] {
			seed.affected[conflict.ConflictingTaskID] = true
			continue
		}
		// The blocker is already in the set; re-planning cannot help.
		break
	}

	res := conflictResult(req.TaskID, req.MachineID, *lastConflict)
	res.Committed = committed
	return res, maxCascadeDepth, len(seed.affected), nil
}

// seed locates the blocking task and runs the directional gap walk. A
// non-nil Result means the shunt resolved without displacement: either the
// proposed position was free and the task was committed there, or the walk
// proved no room exists in the chosen direction.
func (r *ConflictResolver) seed(ctx context.Context, req ShuntRequest) (shuntSeed, *Result, error) {
	e := r.engine
	sim, err := e.place(ctx, placeRequest{
		taskID:        req.TaskID,
		machineID:     req.MachineID,
		anchor:        req.Start,
		durationHours: req.DurationHours,
		operation:     "shunt",
		simulate:      true,
	})
	if err != nil {
		return shuntSeed{}, nil, err
	}
	switch sim.Outcome {
	case OutcomeSuccess:
		// Nothing in the way; commit the proposed position as-is.
		res, err := e.place(ctx, placeRequest{
			taskID:        req.TaskID,
			machineID:     req.MachineID,
			anchor:        req.Start,
			durationHours: req.DurationHours,
			operation:     "shunt",
		})
		if err != nil {
			return shuntSeed{}, nil, err
		}
		res.Committed = []Committed{{TaskID: req.TaskID, Segments: res.Segments}}
		return shuntSeed{}, &res, nil
	case OutcomeFailure:
		return shuntSeed{}, &sim, nil
	}

	tasks, err := r.scheduledTasks(ctx, req.MachineID, req.TaskID)
	if err != nil {
		return shuntSeed{}, nil, err
	}
	idx := -1
	for i, t := range tasks {
		if t.ID == sim.Conflict.ConflictingTaskID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return shuntSeed{}, nil, fmt.Errorf("scheduling: conflicting task %s vanished mid-shunt", sim.Conflict.ConflictingTaskID)
	}

	seed := shuntSeed{blockerID: tasks[idx].ID, affected: map[string]bool{}}
	need := ceilDuration15(model.DurationFromHours(req.DurationHours))
	switch req.Direction {
	case DirectionRight:
		// The dragged task slips in right after the blocker; successors
		// without enough slack get pushed right.
		seed.rightAnchor = ceil15(tasks[idx].ScheduledEnd())
		for i := idx; i+1 < len(tasks); i++ {
			gap := tasks[i+1].ScheduledStart().Sub(tasks[i].ScheduledEnd())
			if gap >= need {
				break
			}
			seed.affected[tasks[i+1].ID] = true
		}
	case DirectionLeft:
		// The blocker and its predecessors without enough slack pack
		// earlier; the dragged task keeps its proposed start.
		seed.affected[tasks[idx].ID] = true
		for i := idx; i > 0; i-- {
			gap := tasks[i].ScheduledStart().Sub(tasks[i-1].ScheduledEnd())
			if gap >= need {
				break
			}
			seed.affected[tasks[i-1].ID] = true
		}
	}
	return seed, nil, nil
}

// plan computes tentative placements for the dragged task and the affected
// set in commit order, iterating the simulation until no task outside the
// set is hit or the iteration ceiling is reached.
func (r *ConflictResolver) plan(ctx context.Context, req ShuntRequest, seed shuntSeed) ([]tentative, *Result, error) {
	for iter := 0; iter < maxShuntIterations; iter++ {
		tasks, err := r.scheduledTasks(ctx, req.MachineID, req.TaskID)
		if err != nil {
			return nil, nil, err
		}
		var chain []model.Task
		for _, t := range tasks {
			if seed.affected[t.ID] {
				chain = append(chain, t)
			}
		}

		plan, failRes, err := r.layout(ctx, req, seed, chain)
		if err != nil || failRes != nil {
			return nil, failRes, err
		}

		// Simulated placements must not ride over anybody outside the set.
		exclude := excludeIDs(seed.affected, req.TaskID)
		grew := false
		for _, p := range plan {
			if ov := findOverlapIn(tasks, p.segments, exclude); ov != nil {
				if !seed.affected[ov.Task.ID] {
					seed.affected[ov.Task.ID] = true
					grew = true
				}
			}
		}
		if !grew {
			return plan, nil, nil
		}
	}
	f := failureResult(req.TaskID, req.MachineID, Failure{
		Reason: fmt.Sprintf("shunt on machine %s found no stable arrangement within %d passes; likely a scheduling deadlock",
			req.MachineID, maxShuntIterations),
		MachineID:     req.MachineID,
		BlockingTasks: len(seed.affected) + 1,
	})
	return nil, &f, nil
}

// layout produces the ordered tentative placements for one simulation
// pass. Rightward: dragged first at its insertion point past the blocker,
// then the displaced successors packed after it on the 15-minute grid.
// Leftward: the blocker chain packed to end just before the proposed
// start, dragged last.
func (r *ConflictResolver) layout(ctx context.Context, req ShuntRequest, seed shuntSeed, chain []model.Task) ([]tentative, *Result, error) {
	e := r.engine
	simulate := func(t *tentative) (*Result, error) {
		res, err := e.place(ctx, placeRequest{
			taskID:        t.taskID,
			machineID:     req.MachineID,
			anchor:        t.anchor,
			backward:      t.backward,
			durationHours: t.durationHours,
			exclude:       excludeIDs(seed.affected, req.TaskID),
			operation:     "shunt",
			simulate:      true,
		})
		if err != nil {
			return nil, err
		}
		if res.Outcome == OutcomeFailure {
			return &res, nil
		}
		// A conflict here is against a task outside the set; the closure
		// check in plan folds it in on the next pass.
		if res.Outcome == OutcomeConflict {
			t.segments = res.Conflict.ProposedSegments
			return nil, nil
		}
		t.segments = res.Segments
		return nil, nil
	}

	var plan []tentative
	switch req.Direction {
	case DirectionRight:
		dragged := tentative{taskID: req.TaskID, anchor: seed.rightAnchor, durationHours: req.DurationHours}
		if failRes, err := simulate(&dragged); err != nil || failRes != nil {
			return nil, failRes, err
		}
		plan = append(plan, dragged)
		anchor := ceil15(dragged.segments[len(dragged.segments)-1].End)
		for _, t := range chain {
			p := tentative{taskID: t.ID, anchor: anchor, durationHours: t.TimeRemainingHours}
			if failRes, err := simulate(&p); err != nil || failRes != nil {
				return nil, failRes, err
			}
			plan = append(plan, p)
			anchor = ceil15(p.segments[len(p.segments)-1].End)
		}
	case DirectionLeft:
		boundary := dayStart(req.Start)
		anchorEnd := floor15(req.Start)
		// Walk the chain from the blocker leftward, nearest first.
		for i := len(chain) - 1; i >= 0; i-- {
			t := chain[i]
			p := tentative{taskID: t.ID, anchor: anchorEnd, backward: true, durationHours: t.TimeRemainingHours}
			if failRes, err := simulate(&p); err != nil || failRes != nil {
				return nil, failRes, err
			}
			if p.segments[0].Start.Before(boundary) {
				// Multi-day leftward cascades are out of scope; report the
				// jam instead of spilling past the day start.
				f := failureResult(req.TaskID, req.MachineID, Failure{
					Reason: fmt.Sprintf("no room before %s on machine %s: %d blocking task(s); try another machine, a shorter duration, or a different day",
						boundary.Format(time.RFC3339), req.MachineID, len(chain)),
					MachineID:     req.MachineID,
					BlockingTasks: len(chain),
				})
				return nil, &f, nil
			}
			plan = append(plan, p)
			anchorEnd = floor15(p.segments[0].Start)
		}
		dragged := tentative{taskID: req.TaskID, anchor: req.Start, durationHours: req.DurationHours}
		if failRes, err := simulate(&dragged); err != nil || failRes != nil {
			return nil, failRes, err
		}
		plan = append(plan, dragged)
	}
	return plan, nil, nil
}

// commit persists the plan in order. A conflict against a task outside the
// affected set is returned for the cascade loop to fold in; placements
// already persisted stay recorded in committed.
func (r *ConflictResolver) commit(ctx context.Context, req ShuntRequest, plan []tentative, seed shuntSeed, committed *[]Committed) (*Conflict, error) {
	e := r.engine
	exclude := excludeIDs(seed.affected, req.TaskID)
	for _, p := range plan {
		res, err := e.place(ctx, placeRequest{
			taskID:        p.taskID,
			machineID:     req.MachineID,
			anchor:        p.anchor,
			backward:      p.backward,
			durationHours: p.durationHours,
			exclude:       exclude,
			operation:     "shunt",
		})
		if err != nil {
			return nil, err
		}
		switch res.Outcome {
		case OutcomeSuccess:
			*committed = upsertCommitted(*committed, Committed{TaskID: p.taskID, Segments: res.Segments})
		case OutcomeConflict:
			return res.Conflict, nil
		case OutcomeFailure:
			return nil, fmt.Errorf("scheduling: %s", res.Failure.Reason)
		}
	}
	return nil, nil
}

func (r *ConflictResolver) scheduledTasks(ctx context.Context, machineID, draggedID string) ([]model.Task, error) {
	tasks, err := r.engine.store.ListTasksByMachine(ctx, machineID)
	if err != nil {
		return nil, err
	}
	out := tasks[:0]
	for _, t := range tasks {
		if t.Status == model.StatusScheduled && t.ID != draggedID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart().Before(out[j].ScheduledStart()) })
	return out, nil
}

func (r *ConflictResolver) record(ctx context.Context, req ShuntRequest, res Result, depth, affected int, err error) {
	e := r.engine
	if err != nil {
		r.log.Warnf("shunt %s on %s failed: %v", req.TaskID, req.MachineID, err)
		return
	}
	shuntsTotal.WithLabelValues(string(req.Direction), string(res.Outcome)).Inc()
	var affectedIDs []string
	for _, c := range res.Committed {
		if c.TaskID != req.TaskID {
			affectedIDs = append(affectedIDs, c.TaskID)
		}
	}
	if e.bus != nil {
		e.bus.Publish(events.ShuntEvent{
			TaskID:    req.TaskID,
			MachineID: req.MachineID,
			Direction: string(req.Direction),
			Outcome:   string(res.Outcome),
			Affected:  affectedIDs,
			Depth:     depth,
		})
	}
	if e.sink != nil {
		if sr, ok := e.sink.(coremetrics.ShuntRecorder); ok {
			if serr := sr.RecordShunt(coremetrics.ShuntRecord{
				TaskID:    req.TaskID,
				MachineID: req.MachineID,
				Direction: string(req.Direction),
				Outcome:   string(res.Outcome),
				Affected:  affected,
				Depth:     depth,
				Time:      time.Now().UTC(),
			}); serr != nil {
				r.log.Errorf("metrics error: %v", serr)
			}
		}
	}
	if e.audit != nil {
		rec := logging.LogRecord{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Operation: "shunt",
			TaskID:    res.TaskID,
			MachineID: res.MachineID,
			Outcome:   string(res.Outcome),
			Segments:  res.Segments,
			WasSplit:  res.WasSplit,
			Direction: string(req.Direction),
			Committed: affectedIDs,
		}
		if res.Conflict != nil {
			rec.ConflictingID = res.Conflict.ConflictingTaskID
		}
		if res.Failure != nil {
			rec.FailureReason = res.Failure.Reason
		}
		if aerr := e.audit.Append(ctx, rec); aerr != nil {
			r.log.Errorf("audit append error: %v", aerr)
		}
	}
}

func lastSegments(committed []Committed, taskID string) []model.Segment {
	for _, c := range committed {
		if c.TaskID == taskID {
			return c.Segments
		}
	}
	return nil
}

func upsertCommitted(list []Committed, c Committed) []Committed {
	for i := range list {
		if list[i].TaskID == c.TaskID {
			list[i] = c
			return list
		}
	}
	return append(list, c)
}

func excludeIDs(affected map[string]bool, draggedID string) []string {
	ids := make([]string, 0, len(affected)+1)
	ids = append(ids, draggedID)
	for id := range affected {
		ids = append(ids, id)
	}
	return ids
}
