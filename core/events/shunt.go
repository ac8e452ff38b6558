package events

import "time"

// ShuntEvent is published when a directional shunt resolves.
type ShuntEvent struct {
	TaskID    string
	MachineID string
	Direction string
	Outcome   string
	Affected  []string
	Depth     int
}

// AvailabilityEvent is published when an availability record is mutated or
// a mutation is rejected by the overlap guard.
type AvailabilityEvent struct {
	MachineID string
	Date      time.Time
	// Hours is the record's unavailable-hour set after the operation.
	Hours []int
	// Blocked reports that the overlap guard rejected the mutation.
	Blocked bool
}
