// Package availability manages per-(machine, date) unavailable-hour records.
// Mutations serialize per key and re-check segment overlap after the lock is
// held, so a task scheduled into the same window concurrently is never
// shadowed by a stale read.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/events"
	"github.com/Santonastaso/scheduler-demo-sub000/core/logger"
	coremetrics "github.com/Santonastaso/scheduler-demo-sub000/core/metrics"
	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
	"github.com/Santonastaso/scheduler-demo-sub000/core/store"
	"github.com/Santonastaso/scheduler-demo-sub000/internal/eventbus"
	"github.com/Santonastaso/scheduler-demo-sub000/internal/lockmap"
)

// Outcome discriminates mutation results.
type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeBlocked Outcome = "blocked"
)

// Result reports an availability mutation. Blocked mutations leave the
// record unchanged and name the task occupying the hour.
type Result struct {
	Outcome        Outcome   `json:"outcome"`
	MachineID      string    `json:"machine_id"`
	Date           time.Time `json:"date"`
	Hours          []int     `json:"hours"`
	BlockedHour    int       `json:"blocked_hour,omitempty"`
	BlockingTaskID string    `json:"blocking_task_id,omitempty"`
}

// Service guards availability records against scheduled segments.
type Service struct {
	store    store.Store
	locks    *lockmap.Map
	lockWait time.Duration
	sink     coremetrics.Sink
	bus      eventbus.EventBus
	log      logger.Logger
}

// NewService creates the availability service. locks is shared with the
// scheduling engine so both sides serialize on the same table. sink and bus
// may be nil; mutations are then neither recorded nor published.
func NewService(st store.Store, locks *lockmap.Map, lockWait time.Duration, sink coremetrics.Sink, bus eventbus.EventBus, log logger.Logger) *Service {
	return &Service{store: st, locks: locks, lockWait: lockWait, sink: sink, bus: bus, log: log}
}

func lockKey(machineID string, date time.Time) string {
	return "availability:" + machineID + ":" + model.Day(date).Format(model.DateKey)
}

// ToggleHour flips one hour of the machine's day between available and
// unavailable. Marking an hour unavailable is rejected when a scheduled
// segment covers it.
func (s *Service) ToggleHour(ctx context.Context, machineID string, date time.Time, hour int) (Result, error) {
	if hour < 0 || hour > 23 {
		return Result{}, fmt.Errorf("availability: hour %d out of range", hour)
	}
	date = model.Day(date)
	release, err := s.locks.Acquire(ctx, lockKey(machineID, date), s.lockWait)
	if err != nil {
		return Result{}, fmt.Errorf("availability: lock %s/%s: %w", machineID, date.Format(model.DateKey), err)
	}
	defer release()

	rec, err := s.store.GetAvailability(ctx, machineID, date)
	if err != nil {
		return Result{}, err
	}
	hours, present := toggle(rec.Hours, hour)
	if present {
		// Newly marked unavailable: guard against scheduled segments,
		// re-checked now that the lock is held.
		if taskID, occupied, err := s.hourOccupied(ctx, machineID, date, hour); err != nil {
			return Result{}, err
		} else if occupied {
			s.log.Warnf("availability toggle rejected: machine %s %s hour %d occupied by task %s",
				machineID, date.Format(model.DateKey), hour, taskID)
			res := Result{
				Outcome:        OutcomeBlocked,
				MachineID:      machineID,
				Date:           date,
				Hours:          rec.Hours,
				BlockedHour:    hour,
				BlockingTaskID: taskID,
			}
			s.record(res, []int{hour})
			return res, nil
		}
	}
	if err := s.store.SaveAvailability(ctx, machineID, date, hours); err != nil {
		return Result{}, err
	}
	s.log.Debugw("availability toggled", map[string]any{
		"machine": machineID, "date": date.Format(model.DateKey), "hour": hour, "unavailable": present,
	})
	res := Result{Outcome: OutcomeUpdated, MachineID: machineID, Date: date, Hours: hours}
	s.record(res, []int{hour})
	return res, nil
}

// SetRange marks every hour in [fromHour, toHour] unavailable or available.
// The whole range is rejected if any hour collides with a scheduled segment;
// partial application would leave the record in a state nobody asked for.
func (s *Service) SetRange(ctx context.Context, machineID string, date time.Time, fromHour, toHour int, unavailable bool) (Result, error) {
	if fromHour < 0 || toHour > 23 || fromHour > toHour {
		return Result{}, fmt.Errorf("availability: invalid hour range [%d, %d]", fromHour, toHour)
	}
	date = model.Day(date)
	release, err := s.locks.Acquire(ctx, lockKey(machineID, date), s.lockWait)
	if err != nil {
		return Result{}, fmt.Errorf("availability: lock %s/%s: %w", machineID, date.Format(model.DateKey), err)
	}
	defer release()

	rec, err := s.store.GetAvailability(ctx, machineID, date)
	if err != nil {
		return Result{}, err
	}
	set := make(map[int]bool, len(rec.Hours))
	for _, h := range rec.Hours {
		set[h] = true
	}
	for h := fromHour; h <= toHour; h++ {
		if unavailable {
			if taskID, occupied, err := s.hourOccupied(ctx, machineID, date, h); err != nil {
				return Result{}, err
			} else if occupied {
				res := Result{
					Outcome:        OutcomeBlocked,
					MachineID:      machineID,
					Date:           date,
					Hours:          rec.Hours,
					BlockedHour:    h,
					BlockingTaskID: taskID,
				}
				s.record(res, []int{h})
				return res, nil
			}
			set[h] = true
		} else {
			delete(set, h)
		}
	}
	hours := make([]int, 0, len(set))
	for h := range set {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	if err := s.store.SaveAvailability(ctx, machineID, date, hours); err != nil {
		return Result{}, err
	}
	changed := make([]int, 0, toHour-fromHour+1)
	for h := fromHour; h <= toHour; h++ {
		changed = append(changed, h)
	}
	res := Result{Outcome: OutcomeUpdated, MachineID: machineID, Date: date, Hours: hours}
	s.record(res, changed)
	return res, nil
}

// record publishes the mutation on the bus and forwards one change per
// touched hour to the metrics sink. Blocked mutations are reported too;
// rejection rates are an operational signal.
func (s *Service) record(res Result, changed []int) {
	blocked := res.Outcome == OutcomeBlocked
	if s.bus != nil {
		s.bus.Publish(events.AvailabilityEvent{
			MachineID: res.MachineID,
			Date:      res.Date,
			Hours:     res.Hours,
			Blocked:   blocked,
		})
	}
	if s.sink == nil {
		return
	}
	ar, ok := s.sink.(coremetrics.AvailabilityRecorder)
	if !ok {
		return
	}
	for _, h := range changed {
		if err := ar.RecordAvailabilityChange(coremetrics.AvailabilityChange{
			MachineID: res.MachineID,
			Date:      res.Date,
			Hour:      h,
			Blocked:   blocked,
			Time:      time.Now().UTC(),
		}); err != nil {
			s.log.Errorf("metrics error: %v", err)
		}
	}
}

// UnavailableSlots returns the machine's merged, time-sorted unavailable
// windows intersecting [from, to).
func (s *Service) UnavailableSlots(ctx context.Context, machineID string, from, to time.Time) ([]model.Segment, error) {
	records, err := s.store.ListAvailability(ctx, machineID, model.Day(from), model.Day(to).Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	var slots []model.Segment
	for _, slot := range model.MergeSlots(records) {
		if slot.End.After(from) && slot.Start.Before(to) {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

func (s *Service) hourOccupied(ctx context.Context, machineID string, date time.Time, hour int) (string, bool, error) {
	tasks, err := s.store.ListTasksByMachine(ctx, machineID)
	if err != nil {
		return "", false, err
	}
	window := model.AvailabilityRecord{MachineID: machineID, Date: date}.HourWindow(hour)
	for _, t := range tasks {
		if t.Status != model.StatusScheduled {
			continue
		}
		for _, seg := range t.OccupiedSegments() {
			if seg.Overlaps(window) {
				return t.ID, true, nil
			}
		}
	}
	return "", false, nil
}

func toggle(hours []int, hour int) ([]int, bool) {
	for i, h := range hours {
		if h == hour {
			return append(append([]int(nil), hours[:i]...), hours[i+1:]...), false
		}
	}
	out := append(append([]int(nil), hours...), hour)
	sort.Ints(out)
	return out, true
}
