package scheduling

import (
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

// slotGrain is the grid tasks snap to when shunting or repacking chains.
const slotGrain = 15 * time.Minute

// ceil15 rounds t up to the next 15-minute boundary; aligned instants are
// returned unchanged.
func ceil15(t time.Time) time.Time {
	r := t.Truncate(slotGrain)
	if r.Before(t) {
		r = r.Add(slotGrain)
	}
	return r
}

// floor15 rounds t down to a 15-minute boundary.
func floor15(t time.Time) time.Time { return t.Truncate(slotGrain) }

// ceilDuration15 rounds a duration up to whole 15-minute steps.
func ceilDuration15(d time.Duration) time.Duration {
	if r := d % slotGrain; r != 0 {
		d += slotGrain - r
	}
	return d
}

// dayStart returns the scheduling day-start boundary (06:00 UTC) of the day
// containing t.
func dayStart(t time.Time) time.Time {
	return model.Day(t).Add(dayStartHour * time.Hour)
}

// intersectsAny reports whether the window [start, end) touches any of the
// merged, sorted slots.
func intersectsAny(start, end time.Time, slots []model.Segment) bool {
	for _, s := range slots {
		if s.Start.Before(end) && s.End.After(start) {
			return true
		}
	}
	return false
}
