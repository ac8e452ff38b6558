// Package metrics defines the sink interfaces scheduling results are
// recorded through. Implementations live under infra/metrics.
package metrics

import "time"

// PlacementRecord represents one placement outcome to be recorded.
type PlacementRecord struct {
	TaskID        string
	MachineID     string
	Operation     string // place, place_ending_at, change_duration
	Outcome       string
	Segments      int
	WasSplit      bool
	DurationHours float64
	Start         time.Time
	End           time.Time
	Time          time.Time
}

// Sink records placement results for observability purposes.
type Sink interface {
	RecordPlacement(recs []PlacementRecord) error
}

// ShuntRecord captures one shunt resolution.
type ShuntRecord struct {
	TaskID    string
	MachineID string
	Direction string
	Outcome   string
	Affected  int
	Depth     int
	Time      time.Time
}

// ShuntRecorder is implemented by sinks able to record shunt events.
type ShuntRecorder interface {
	RecordShunt(rec ShuntRecord) error
}

// AvailabilityChange captures one availability mutation.
type AvailabilityChange struct {
	MachineID string
	Date      time.Time
	Hour      int
	Blocked   bool
	Time      time.Time
}

// AvailabilityRecorder is implemented by sinks able to record availability
// mutations.
type AvailabilityRecorder interface {
	RecordAvailabilityChange(ev AvailabilityChange) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlacement([]PlacementRecord) error          { return nil }
func (NopSink) RecordShunt(ShuntRecord) error                    { return nil }
func (NopSink) RecordAvailabilityChange(AvailabilityChange) error { return nil }
