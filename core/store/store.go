// Package store defines the narrow persistence interfaces the scheduling
// engine consumes. Implementations live under infra/store; the engine awaits
// every call before returning, so reads issued after a successful placement
// observe the committed segments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

// ErrNotFound is returned when the requested task or machine does not exist.
var ErrNotFound = errors.New("store: not found")

// TaskStore persists work orders together with their segment lists.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (model.Task, error)
	ListTasksByMachine(ctx context.Context, machineID string) ([]model.Task, error)
	SaveTask(ctx context.Context, t model.Task) error
}

// MachineStore persists machines.
type MachineStore interface {
	GetMachine(ctx context.Context, id string) (model.Machine, error)
	ListMachines(ctx context.Context) ([]model.Machine, error)
	SaveMachine(ctx context.Context, m model.Machine) error
}

// AvailabilityStore persists per-(machine, date) unavailable-hour records.
// Dates are UTC midnights.
type AvailabilityStore interface {
	GetAvailability(ctx context.Context, machineID string, date time.Time) (model.AvailabilityRecord, error)
	// ListAvailability returns all records for the machine whose date falls
	// in [from, to), ordered by date.
	ListAvailability(ctx context.Context, machineID string, from, to time.Time) ([]model.AvailabilityRecord, error)
	SaveAvailability(ctx context.Context, machineID string, date time.Time, hours []int) error
}

// Store bundles the three collaborator interfaces.
type Store interface {
	TaskStore
	MachineStore
	AvailabilityStore
}
