package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

// MemoryStore is the in-memory collaborator used by tests and standalone
// runs. All returned values are copies; callers never share slices with the
// store.
type MemoryStore struct {
	mu           sync.RWMutex
	tasks        map[string]model.Task
	machines     map[string]model.Machine
	availability map[string]map[string][]int // machineID -> date key -> hours
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:        make(map[string]model.Task),
		machines:     make(map[string]model.Machine),
		availability: make(map[string]map[string][]int),
	}
}

func copyTask(t model.Task) model.Task {
	t.Segments = append([]model.Segment(nil), t.Segments...)
	return t
}

// GetTask returns the task or ErrNotFound.
func (s *MemoryStore) GetTask(ctx context.Context, id string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return copyTask(t), nil
}

// ListTasksByMachine returns every task assigned to the machine, ordered by
// scheduled start with unscheduled tasks last.
func (s *MemoryStore) ListTasksByMachine(ctx context.Context, machineID string) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Task
	for _, t := range s.tasks {
		if t.MachineID == machineID {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].ScheduledStart(), out[j].ScheduledStart()
		if si.IsZero() != sj.IsZero() {
			return !si.IsZero()
		}
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveTask upserts the task.
func (s *MemoryStore) SaveTask(ctx context.Context, t model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = copyTask(t)
	return nil
}

// GetMachine returns the machine or ErrNotFound.
func (s *MemoryStore) GetMachine(ctx context.Context, id string) (model.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.machines[id]
	if !ok {
		return model.Machine{}, ErrNotFound
	}
	return m, nil
}

// ListMachines returns all machines ordered by id.
func (s *MemoryStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Machine, 0, len(s.machines))
	for _, m := range s.machines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveMachine upserts the machine.
func (s *MemoryStore) SaveMachine(ctx context.Context, m model.Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.machines[m.ID] = m
	return nil
}

// GetAvailability returns the record for the machine and day. A missing
// record comes back with no hours rather than an error.
func (s *MemoryStore) GetAvailability(ctx context.Context, machineID string, date time.Time) (model.AvailabilityRecord, error) {
	date = model.Day(date)
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := model.AvailabilityRecord{MachineID: machineID, Date: date}
	if days, ok := s.availability[machineID]; ok {
		rec.Hours = append([]int(nil), days[date.Format(model.DateKey)]...)
	}
	return rec, nil
}

// ListAvailability returns the machine's records with a date in [from, to).
func (s *MemoryStore) ListAvailability(ctx context.Context, machineID string, from, to time.Time) ([]model.AvailabilityRecord, error) {
	from, to = model.Day(from), model.Day(to)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AvailabilityRecord
	for key, hours := range s.availability[machineID] {
		if len(hours) == 0 {
			continue
		}
		d, err := time.ParseInLocation(model.DateKey, key, time.UTC)
		if err != nil {
			continue
		}
		if d.Before(from) || !d.Before(to) {
			continue
		}
		out = append(out, model.AvailabilityRecord{
			MachineID: machineID,
			Date:      d,
			Hours:     append([]int(nil), hours...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SaveAvailability replaces the hour set for the machine and day.
func (s *MemoryStore) SaveAvailability(ctx context.Context, machineID string, date time.Time, hours []int) error {
	date = model.Day(date)
	sorted := append([]int(nil), hours...)
	sort.Ints(sorted)
	s.mu.Lock()
	defer s.mu.Unlock()
	days, ok := s.availability[machineID]
	if !ok {
		days = make(map[string][]int)
		s.availability[machineID] = days
	}
	days[date.Format(model.DateKey)] = sorted
	return nil
}
