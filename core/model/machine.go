package model

// MachineStatus marks whether a machine accepts new work.
type MachineStatus string

const (
	MachineActive   MachineStatus = "ACTIVE"
	MachineInactive MachineStatus = "INACTIVE"
)

// Machine is a production resource tasks are scheduled on. Tasks may only
// run on machines whose work center matches their own.
type Machine struct {
	ID         string        `json:"id"`
	WorkCenter string        `json:"work_center"`
	Department string        `json:"department"`
	Status     MachineStatus `json:"status"`
}

// AcceptsWork reports whether the machine can take new placements.
func (m Machine) AcceptsWork() bool { return m.Status == MachineActive }
