package model

import (
	"sort"
	"time"
)

// DateKey formats a UTC calendar date the way availability records are
// keyed.
const DateKey = "2006-01-02"

// AvailabilityRecord lists the hours of one UTC calendar day during which a
// machine accepts no work. Entries are created by explicit toggles and never
// expire on their own.
type AvailabilityRecord struct {
	MachineID string    `json:"machine_id"`
	Date      time.Time `json:"date"`  // UTC midnight of the day
	Hours     []int     `json:"hours"` // hours of day 0-23, sorted
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HourWindow returns the [start, end) interval of one unavailable hour on
// the record's day.
func (r AvailabilityRecord) HourWindow(hour int) Segment {
	start := r.Date.Add(time.Duration(hour) * time.Hour)
	return NewSegment(start, start.Add(time.Hour))
}

// Slots converts the record into merged, time-sorted unavailable windows.
// Consecutive hours collapse into a single window.
func (r AvailabilityRecord) Slots() []Segment {
	if len(r.Hours) == 0 {
		return nil
	}
	hours := append([]int(nil), r.Hours...)
	sort.Ints(hours)
	var out []Segment
	runStart := hours[0]
	prev := hours[0]
	for _, h := range hours[1:] {
		if h == prev || h == prev+1 {
			prev = h
			continue
		}
		out = append(out, NewSegment(
			r.Date.Add(time.Duration(runStart)*time.Hour),
			r.Date.Add(time.Duration(prev+1)*time.Hour),
		))
		runStart, prev = h, h
	}
	out = append(out, NewSegment(
		r.Date.Add(time.Duration(runStart)*time.Hour),
		r.Date.Add(time.Duration(prev+1)*time.Hour),
	))
	return out
}

// MergeSlots combines unavailable windows from several records into one
// sorted list, coalescing touching or overlapping windows.
func MergeSlots(records []AvailabilityRecord) []Segment {
	var slots []Segment
	for _, r := range records {
		slots = append(slots, r.Slots()...)
	}
	if len(slots) == 0 {
		return nil
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	merged := []Segment{slots[0]}
	for _, s := range slots[1:] {
		last := &merged[len(merged)-1]
		if !s.Start.After(last.End) {
			if s.End.After(last.End) {
				*last = NewSegment(last.Start, s.End)
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
