package scheduling

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
)

func slot(startHour, endHour int) model.Segment {
	return model.NewSegment(at(startHour, 0), at(endHour, 0))
}

func TestSplitForwardAroundSlot(t *testing.T) {
	segs, err := SplitForward(at(13, 0), 2, []model.Segment{slot(14, 15)})
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, at(13, 0), segs[0].Start)
	assert.Equal(t, at(14, 0), segs[0].End)
	assert.Equal(t, at(15, 0), segs[1].Start)
	assert.Equal(t, at(16, 0), segs[1].End)
}

func TestSplitForwardNoSlots(t *testing.T) {
	segs, err := SplitForward(at(9, 0), 3.5, nil)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, at(9, 0), segs[0].Start)
	assert.Equal(t, at(12, 30), segs[0].End)
}

func TestSplitForwardStartInsideSlot(t *testing.T) {
	segs, err := SplitForward(at(14, 30), 1, []model.Segment{slot(14, 15)})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, at(15, 0), segs[0].Start)
	assert.Equal(t, at(16, 0), segs[0].End)
}

func TestSplitForwardMultipleSlots(t *testing.T) {
	slots := []model.Segment{slot(10, 11), slot(12, 14), slot(15, 16)}
	segs, err := SplitForward(at(9, 0), 5, slots)
	require.NoError(t, err)
	require.Len(t, segs, 4)
	assert.Equal(t, at(9, 0), segs[0].Start)
	assert.Equal(t, at(10, 0), segs[0].End)
	assert.Equal(t, at(11, 0), segs[1].Start)
	assert.Equal(t, at(12, 0), segs[1].End)
	assert.Equal(t, at(14, 0), segs[2].Start)
	assert.Equal(t, at(15, 0), segs[2].End)
	assert.Equal(t, at(16, 0), segs[3].Start)
	assert.Equal(t, at(18, 0), segs[3].End)
}

// Output segments are ordered, non-overlapping, outside every slot, and
// their durations sum to the request.
func TestSplitForwardProperties(t *testing.T) {
	cases := []struct {
		name     string
		start    time.Time
		duration float64
		slots    []model.Segment
	}{
		{"plain", at(8, 0), 4, nil},
		{"one slot", at(8, 0), 4, []model.Segment{slot(9, 10)}},
		{"dense", at(6, 15), 6.5, []model.Segment{slot(7, 8), slot(9, 12), slot(13, 14), slot(16, 17)}},
		{"start in slot", at(9, 30), 2.25, []model.Segment{slot(9, 10), slot(11, 12)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segs, err := SplitForward(tc.start, tc.duration, tc.slots)
			require.NoError(t, err)
			require.NotEmpty(t, segs)
			total := 0.0
			for i, s := range segs {
				require.NoError(t, s.Validate())
				if i > 0 {
					assert.False(t, s.Start.Before(segs[i-1].End), "segments out of order")
				}
				for _, u := range tc.slots {
					assert.False(t, s.Overlaps(u), "segment %v intersects slot %v", s, u)
				}
				total += s.End.Sub(s.Start).Hours()
			}
			assert.InDelta(t, tc.duration, total, 1e-6)
		})
	}
}

// Splitting backward from the forward result's end with the same duration
// and slots reproduces the same segment set.
func TestSplitRoundTrip(t *testing.T) {
	slots := []model.Segment{slot(7, 8), slot(9, 12), slot(13, 14), slot(16, 17)}
	fwd, err := SplitForward(at(6, 15), 6.5, slots)
	require.NoError(t, err)

	back, err := SplitBackward(fwd[len(fwd)-1].End, 6.5, slots)
	require.NoError(t, err)
	require.Equal(t, len(fwd), len(back))
	for i := range fwd {
		assert.True(t, fwd[i].Start.Equal(back[i].Start), "segment %d start: %v != %v", i, fwd[i].Start, back[i].Start)
		assert.True(t, fwd[i].End.Equal(back[i].End), "segment %d end: %v != %v", i, fwd[i].End, back[i].End)
	}
}

func TestSplitBackwardAroundSlot(t *testing.T) {
	segs, err := SplitBackward(at(16, 0), 2, []model.Segment{slot(14, 15)})
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, at(13, 0), segs[0].Start)
	assert.Equal(t, at(14, 0), segs[0].End)
	assert.Equal(t, at(15, 0), segs[1].Start)
	assert.Equal(t, at(16, 0), segs[1].End)
}

func TestSplitBackwardEndInsideSlot(t *testing.T) {
	segs, err := SplitBackward(at(14, 30), 1, []model.Segment{slot(14, 15)})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, at(13, 0), segs[0].Start)
	assert.Equal(t, at(14, 0), segs[0].End)
}

func TestSplitSegmentCap(t *testing.T) {
	// 15-minute free windows between hour-long slots force one fragment
	// per 15 minutes of duration.
	var slots []model.Segment
	cur := at(6, 15)
	for i := 0; i < 120; i++ {
		slots = append(slots, model.NewSegment(cur, cur.Add(time.Hour)))
		cur = cur.Add(75 * time.Minute)
	}
	_, err := SplitForward(at(6, 0), 13, slots)
	require.ErrorIs(t, err, ErrTooFragmented)

	_, err = SplitBackward(cur, 13, slots)
	require.ErrorIs(t, err, ErrTooFragmented)
}

func TestSplitRejectsNonPositiveDuration(t *testing.T) {
	_, err := SplitForward(at(9, 0), 0, nil)
	assert.True(t, IsValidation(err))
	_, err = SplitBackward(at(9, 0), -1, nil)
	assert.True(t, IsValidation(err))
}

func TestCeil15(t *testing.T) {
	assert.Equal(t, at(9, 0), ceil15(at(9, 0)))
	assert.Equal(t, at(9, 15), ceil15(at(9, 1)))
	assert.Equal(t, at(9, 15), ceil15(at(9, 14)))
	assert.Equal(t, at(10, 0), ceil15(at(9, 46)))
	assert.Equal(t, at(9, 45), floor15(at(9, 59)))
	assert.Equal(t, 15*time.Minute, ceilDuration15(10*time.Minute))
	assert.Equal(t, 90*time.Minute, ceilDuration15(90*time.Minute))
}

func TestDurationFromHoursPrecision(t *testing.T) {
	assert.InDelta(t, 1.5, model.DurationFromHours(1.5).Hours(), 1e-9)
	assert.True(t, math.Abs(model.DurationFromHours(0.25).Minutes()-15) < 1e-9)
}
