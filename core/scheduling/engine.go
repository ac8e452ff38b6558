package scheduling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Santonastaso/scheduler-demo-sub000/core/availability"
	"github.com/Santonastaso/scheduler-demo-sub000/core/events"
	"github.com/Santonastaso/scheduler-demo-sub000/core/logger"
	coremetrics "github.com/Santonastaso/scheduler-demo-sub000/core/metrics"
	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
	"github.com/Santonastaso/scheduler-demo-sub000/core/scheduling/logging"
	"github.com/Santonastaso/scheduler-demo-sub000/core/store"
	"github.com/Santonastaso/scheduler-demo-sub000/internal/eventbus"
	"github.com/Santonastaso/scheduler-demo-sub000/internal/lockmap"
)

// Engine resolves placement requests into committed segment sets, conflict
// reports or failures. Every read-compute-commit sequence holds the
// machine's lock, so operations on the same machine serialize while
// different machines proceed concurrently.
type Engine struct {
	cfg      Config
	store    store.Store
	avail    *availability.Service
	detector *OverlapDetector
	locks    *lockmap.Map
	log      logger.Logger
	sink     coremetrics.Sink
	bus      eventbus.EventBus
	audit    logging.LogStore
}

// NewEngine creates a scheduling engine. sink and bus may be nil; audit is
// configured separately via SetLogStore.
func NewEngine(cfg Config, st store.Store, avail *availability.Service, locks *lockmap.Map, sink coremetrics.Sink, bus eventbus.EventBus, log logger.Logger) (*Engine, error) {
	if st == nil || avail == nil || locks == nil || log == nil {
		return nil, fmt.Errorf("scheduling: nil parameter provided to NewEngine")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		store:    st,
		avail:    avail,
		detector: NewOverlapDetector(st),
		locks:    locks,
		log:      log,
		sink:     sink,
		bus:      bus,
	}, nil
}

// SetLogStore configures the store used to persist the scheduling audit
// trail.
func (e *Engine) SetLogStore(store logging.LogStore) { e.audit = store }

// Close releases resources held by the engine.
func (e *Engine) Close() error {
	if e.bus != nil {
		e.bus.Close()
	}
	if e.audit != nil {
		return e.audit.Close()
	}
	return nil
}

// Place schedules the task starting at start for durationHours on the
// machine. Tasks in exclude are skipped during overlap checking, which
// batch operations use to ignore peers about to move. The returned Result
// is Success, Conflict or Failure; errors cover validation, lock contention
// and infrastructure problems only.
func (e *Engine) Place(ctx context.Context, taskID string, start time.Time, durationHours float64, machineID string, exclude []string) (Result, error) {
	release, err := e.lockMachine(ctx, machineID)
	if err != nil {
		return Result{}, err
	}
	defer release()
	res, err := e.place(ctx, placeRequest{
		taskID:        taskID,
		machineID:     machineID,
		anchor:        start,
		durationHours: durationHours,
		exclude:       exclude,
		operation:     "place",
	})
	e.record(ctx, "place", res, err)
	return res, err
}

// PlaceEndingAt schedules the task so it finishes by end, splitting
// backward around unavailability. Leftward shunting uses it to pack tasks
// against a deadline.
func (e *Engine) PlaceEndingAt(ctx context.Context, taskID string, end time.Time, durationHours float64, machineID string, exclude []string) (Result, error) {
	release, err := e.lockMachine(ctx, machineID)
	if err != nil {
		return Result{}, err
	}
	defer release()
	res, err := e.place(ctx, placeRequest{
		taskID:        taskID,
		machineID:     machineID,
		anchor:        end,
		backward:      true,
		durationHours: durationHours,
		exclude:       exclude,
		operation:     "place_ending_at",
	})
	e.record(ctx, "place_ending_at", res, err)
	return res, err
}

// Unschedule clears the task's segments and reverts it to NOT_SCHEDULED.
func (e *Engine) Unschedule(ctx context.Context, taskID string) error {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return validationf("task %s not found", taskID)
		}
		return err
	}
	if task.MachineID != "" {
		release, err := e.lockMachine(ctx, task.MachineID)
		if err != nil {
			return err
		}
		defer release()
		// Re-read under the lock; a concurrent operation may have moved it.
		if task, err = e.store.GetTask(ctx, taskID); err != nil {
			return err
		}
	}
	task.Segments = nil
	task.MachineID = ""
	task.Status = model.StatusNotScheduled
	if err := e.store.SaveTask(ctx, task); err != nil {
		return err
	}
	e.log.Infof("unscheduled task %s", taskID)
	return nil
}

// placeRequest carries one placement attempt through the internal pipeline.
// The machine lock is already held when place runs.
type placeRequest struct {
	taskID        string
	machineID     string
	anchor        time.Time // start instant, or end instant when backward
	backward      bool
	durationHours float64
	exclude       []string
	operation     string
	simulate      bool     // compute and check, but commit nothing
	newRequested  *float64 // duration fields updated atomically on commit
	newRemaining  *float64
}

// place validates, computes the candidate segment set, overlap-checks it
// and commits. It assumes the caller holds the machine lock.
func (e *Engine) place(ctx context.Context, req placeRequest) (Result, error) {
	if req.durationHours <= 0 {
		return Result{}, validationf("duration must be positive, got %.4fh", req.durationHours)
	}
	task, err := e.store.GetTask(ctx, req.taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, validationf("task %s not found", req.taskID)
		}
		return Result{}, err
	}
	// Committed segments must sum to the task's remaining time. Duration
	// edits pass newRemaining and update the fields atomically; everything
	// else must ask for exactly the remaining time.
	if req.newRemaining == nil && math.Abs(req.durationHours-task.TimeRemainingHours) > durationEpsilon {
		return Result{}, validationf("duration %.4fh does not match task %s remaining time %.4fh",
			req.durationHours, task.ID, task.TimeRemainingHours)
	}
	machine, err := e.store.GetMachine(ctx, req.machineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, validationf("machine %s not found", req.machineID)
		}
		return Result{}, err
	}
	if task.WorkCenter != machine.WorkCenter {
		return Result{}, validationf("task %s work center %q does not match machine %s work center %q",
			task.ID, task.WorkCenter, machine.ID, machine.WorkCenter)
	}
	if !machine.AcceptsWork() {
		return Result{}, validationf("machine %s is inactive", machine.ID)
	}

	candidate, err := e.candidateSegments(ctx, req)
	if err != nil {
		if errors.Is(err, ErrTooFragmented) {
			return failureResult(req.taskID, req.machineID, Failure{
				Reason:    fmt.Sprintf("placement of task %s fragments into more than %d segments", req.taskID, maxSplitSegments),
				MachineID: req.machineID,
			}), nil
		}
		return Result{}, err
	}

	exclude := append(append([]string(nil), req.exclude...), req.taskID)
	overlap, err := e.detector.FindOverlap(ctx, candidate, req.machineID, exclude)
	if err != nil {
		return Result{}, err
	}
	if overlap != nil {
		start := req.anchor
		if req.backward {
			start = candidate[0].Start
		}
		return conflictResult(req.taskID, req.machineID, Conflict{
			TaskID:             req.taskID,
			MachineID:          req.machineID,
			ConflictingTaskID:  overlap.Task.ID,
			ConflictingSegment: overlap.TaskSegment,
			ProposedSegment:    overlap.Candidate,
			ProposedSegments:   candidate,
			ProposedStart:      start,
			DurationHours:      req.durationHours,
		}), nil
	}

	if req.simulate {
		return successResult(req.taskID, req.machineID, candidate), nil
	}

	task.MachineID = req.machineID
	task.Segments = candidate
	task.Status = model.StatusScheduled
	if req.newRequested != nil {
		task.RequestedDurationHours = *req.newRequested
	}
	if req.newRemaining != nil {
		task.TimeRemainingHours = *req.newRemaining
	}
	if err := e.store.SaveTask(ctx, task); err != nil {
		return Result{}, err
	}
	return successResult(req.taskID, req.machineID, candidate), nil
}

// candidateSegments computes the proposed segment set for the request: a
// single segment when no unavailable slot intersects the nominal window,
// otherwise a split around the machine's unavailability.
func (e *Engine) candidateSegments(ctx context.Context, req placeRequest) ([]model.Segment, error) {
	dur := model.DurationFromHours(req.durationHours)
	// The horizon buffers for splitting pushing the tail arbitrarily far
	// past the nominal window.
	horizon := time.Duration(e.cfg.HorizonDays) * 24 * time.Hour

	if req.backward {
		slots, err := e.avail.UnavailableSlots(ctx, req.machineID, req.anchor.Add(-dur-horizon), req.anchor)
		if err != nil {
			return nil, err
		}
		if !intersectsAny(req.anchor.Add(-dur), req.anchor, slots) {
			return []model.Segment{model.NewSegment(req.anchor.Add(-dur), req.anchor)}, nil
		}
		return SplitBackward(req.anchor, req.durationHours, slots)
	}

	slots, err := e.avail.UnavailableSlots(ctx, req.machineID, req.anchor, req.anchor.Add(dur+horizon))
	if err != nil {
		return nil, err
	}
	if !intersectsAny(req.anchor, req.anchor.Add(dur), slots) {
		return []model.Segment{model.NewSegment(req.anchor, req.anchor.Add(dur))}, nil
	}
	return SplitForward(req.anchor, req.durationHours, slots)
}

func (e *Engine) lockMachine(ctx context.Context, machineID string) (func(), error) {
	key := "machine:" + machineID
	release, err := e.locks.Acquire(ctx, key, time.Duration(e.cfg.LockWaitSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, lockmap.ErrWaitExceeded) {
			return nil, &ConcurrencyError{Key: key, Err: err}
		}
		return nil, err
	}
	return release, nil
}

// record publishes the outcome on the bus and persists it to the metrics
// sink and audit store. Only resolved results are recorded; validation and
// infrastructure errors are logged instead.
func (e *Engine) record(ctx context.Context, operation string, res Result, err error) {
	if err != nil {
		e.log.Warnf("%s failed: %v", operation, err)
		return
	}
	if res.Outcome == "" {
		return
	}
	e.recordOp(ctx, operation, res)
}

func (e *Engine) recordOp(ctx context.Context, operation string, res Result) {
	placementsTotal.WithLabelValues(operation, string(res.Outcome)).Inc()
	if res.Outcome == OutcomeSuccess {
		splitSegments.Observe(float64(len(res.Segments)))
	}
	if e.bus != nil {
		e.bus.Publish(events.PlacementEvent{
			TaskID:    res.TaskID,
			MachineID: res.MachineID,
			Operation: operation,
			Outcome:   string(res.Outcome),
			Segments:  res.Segments,
			WasSplit:  res.WasSplit,
		})
		if res.Conflict != nil {
			e.bus.Publish(events.ConflictEvent{
				TaskID:            res.TaskID,
				MachineID:         res.MachineID,
				ConflictingTaskID: res.Conflict.ConflictingTaskID,
				ProposedStart:     res.Conflict.ProposedStart,
			})
		}
	}
	if e.sink != nil {
		rec := coremetrics.PlacementRecord{
			TaskID:    res.TaskID,
			MachineID: res.MachineID,
			Operation: operation,
			Outcome:   string(res.Outcome),
			Segments:  len(res.Segments),
			WasSplit:  res.WasSplit,
			Time:      time.Now().UTC(),
		}
		if len(res.Segments) > 0 {
			rec.Start = res.Segments[0].Start
			rec.End = res.Segments[len(res.Segments)-1].End
			rec.DurationHours = rec.End.Sub(rec.Start).Hours()
		}
		if err := e.sink.RecordPlacement([]coremetrics.PlacementRecord{rec}); err != nil {
			e.log.Errorf("metrics error: %v", err)
		}
	}
	if e.audit != nil {
		rec := logging.LogRecord{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Operation: operation,
			TaskID:    res.TaskID,
			MachineID: res.MachineID,
			Outcome:   string(res.Outcome),
			Segments:  res.Segments,
			WasSplit:  res.WasSplit,
		}
		if res.Conflict != nil {
			rec.ConflictingID = res.Conflict.ConflictingTaskID
		}
		if res.Failure != nil {
			rec.FailureReason = res.Failure.Reason
		}
		for _, c := range res.Committed {
			rec.Committed = append(rec.Committed, c.TaskID)
		}
		if err := e.audit.Append(ctx, rec); err != nil {
			e.log.Errorf("audit append error: %v", err)
		}
	}
}
