package model

import (
	"fmt"
	"time"
)

// Segment is one contiguous scheduled interval belonging to a task. A task
// carries several segments when its run is split around machine
// unavailability. Segments are owned by exactly one task and are never
// shared.
type Segment struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DurationHours float64   `json:"duration_hours"`
}

// NewSegment builds a segment from its bounds, deriving the duration.
func NewSegment(start, end time.Time) Segment {
	return Segment{Start: start, End: end, DurationHours: end.Sub(start).Hours()}
}

// Duration returns the segment length as a time.Duration.
func (s Segment) Duration() time.Duration { return s.End.Sub(s.Start) }

// Overlaps reports whether the two intervals intersect. Touching bounds do
// not count as an overlap.
func (s Segment) Overlaps(o Segment) bool {
	return s.Start.Before(o.End) && s.End.After(o.Start)
}

// Validate checks that the segment bounds are sound.
func (s Segment) Validate() error {
	if !s.End.After(s.Start) {
		return fmt.Errorf("segment end %v must be after start %v", s.End, s.Start)
	}
	return nil
}
