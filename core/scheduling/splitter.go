package scheduling

import (
	"time"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

// SplitForward walks forward from start and covers durationHours with the
// minimal ordered list of segments lying entirely outside the unavailable
// slots. Slots must be pre-merged and time-sorted. A start falling inside a
// slot is advanced to the slot's end before any time is consumed.
//
// The function is pure: it reads no state and commits nothing.
func SplitForward(start time.Time, durationHours float64, slots []model.Segment) ([]model.Segment, error) {
	if durationHours <= 0 {
		return nil, validationf("split duration must be positive, got %.4fh", durationHours)
	}
	need := model.DurationFromHours(durationHours)
	cur := start
	var segs []model.Segment
	for need > 0 {
		if len(segs) == maxSplitSegments {
			return nil, ErrTooFragmented
		}
		cur = skipForward(cur, slots)
		end := cur.Add(need)
		if limit, bounded := nextSlotStart(cur, slots); bounded && end.After(limit) {
			end = limit
		}
		segs = append(segs, model.NewSegment(cur, end))
		need -= end.Sub(cur)
		cur = end
	}
	return segs, nil
}

// SplitBackward mirrors SplitForward anchored on an end instant, for
// placements that must finish by a given time. The returned segments are in
// chronological order even though construction runs in reverse.
func SplitBackward(end time.Time, durationHours float64, slots []model.Segment) ([]model.Segment, error) {
	if durationHours <= 0 {
		return nil, validationf("split duration must be positive, got %.4fh", durationHours)
	}
	need := model.DurationFromHours(durationHours)
	cur := end
	var segs []model.Segment
	for need > 0 {
		if len(segs) == maxSplitSegments {
			return nil, ErrTooFragmented
		}
		cur = skipBackward(cur, slots)
		start := cur.Add(-need)
		if limit, bounded := prevSlotEnd(cur, slots); bounded && start.Before(limit) {
			start = limit
		}
		segs = append(segs, model.NewSegment(start, cur))
		need -= cur.Sub(start)
		cur = start
	}
	// Reverse into chronological order.
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return segs, nil
}

// skipForward advances t out of any slot containing it. Slots are merged,
// so a single pass suffices: after landing on a slot's end, the next slot
// starts strictly later.
func skipForward(t time.Time, slots []model.Segment) time.Time {
	for _, s := range slots {
		if t.Before(s.Start) {
			break
		}
		if t.Before(s.End) {
			t = s.End
		}
	}
	return t
}

// skipBackward moves t out of any slot whose interior precedes it. An
// instant equal to a slot's end must move to the slot's start: the time
// immediately below it is unavailable.
func skipBackward(t time.Time, slots []model.Segment) time.Time {
	for i := len(slots) - 1; i >= 0; i-- {
		s := slots[i]
		if !t.After(s.Start) {
			continue
		}
		if !t.After(s.End) {
			t = s.Start
		}
		break
	}
	return t
}

// nextSlotStart returns the start of the first slot after t, if any.
func nextSlotStart(t time.Time, slots []model.Segment) (time.Time, bool) {
	for _, s := range slots {
		if s.Start.After(t) {
			return s.Start, true
		}
	}
	return time.Time{}, false
}

// prevSlotEnd returns the end of the last slot ending before t, if any.
func prevSlotEnd(t time.Time, slots []model.Segment) (time.Time, bool) {
	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i].End.Before(t) {
			return slots[i].End, true
		}
	}
	return time.Time{}, false
}
