package scheduling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Santonastaso/scheduler-demo-sub000/core/model"
	"github.com/Santonastaso/scheduler-demo-sub000/core/store"
)

func scheduledTask(id string, segs ...model.Segment) model.Task {
	total := 0.0
	for _, s := range segs {
		total += s.End.Sub(s.Start).Hours()
	}
	return model.Task{
		ID: id, MachineID: "m1", WorkCenter: "milling",
		RequestedDurationHours: total, TimeRemainingHours: total,
		Quantity: 1, Status: model.StatusScheduled, Segments: segs,
	}
}

func TestFindOverlapReportsEarliestStartingTask(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.SaveTask(ctx, scheduledTask("late", model.NewSegment(at(11, 0), at(12, 0)))))
	require.NoError(t, st.SaveTask(ctx, scheduledTask("early", model.NewSegment(at(9, 0), at(10, 30)))))

	d := NewOverlapDetector(st)
	ov, err := d.FindOverlap(ctx, []model.Segment{model.NewSegment(at(10, 0), at(11, 30))}, "m1", nil)
	require.NoError(t, err)
	require.NotNil(t, ov)
	assert.Equal(t, "early", ov.Task.ID)
	assert.Equal(t, at(9, 0), ov.TaskSegment.Start)
}

func TestFindOverlapTouchingBoundsDoNotCollide(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.SaveTask(ctx, scheduledTask("a", model.NewSegment(at(9, 0), at(10, 0)))))

	d := NewOverlapDetector(st)
	ov, err := d.FindOverlap(ctx, []model.Segment{model.NewSegment(at(10, 0), at(11, 0))}, "m1", nil)
	require.NoError(t, err)
	assert.Nil(t, ov)
}

func TestFindOverlapRespectsExcludeAndStatus(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.SaveTask(ctx, scheduledTask("a", model.NewSegment(at(9, 0), at(10, 0)))))
	done := scheduledTask("done", model.NewSegment(at(10, 0), at(11, 0)))
	done.Status = model.StatusCompleted
	require.NoError(t, st.SaveTask(ctx, done))

	d := NewOverlapDetector(st)
	candidate := []model.Segment{model.NewSegment(at(9, 30), at(10, 30))}

	ov, err := d.FindOverlap(ctx, candidate, "m1", []string{"a"})
	require.NoError(t, err)
	assert.Nil(t, ov, "excluded and non-scheduled tasks must be skipped")

	ov, err = d.FindOverlap(ctx, candidate, "m1", nil)
	require.NoError(t, err)
	require.NotNil(t, ov)
	assert.Equal(t, "a", ov.Task.ID)
}

// An unsplit single-segment candidate is checked like any other.
func TestFindOverlapSingleSegmentCandidate(t *testing.T) {
	tasks := []model.Task{scheduledTask("a", model.NewSegment(at(9, 0), at(11, 0)))}
	ov := findOverlapIn(tasks, []model.Segment{model.NewSegment(at(10, 0), at(10, 15))}, nil)
	require.NotNil(t, ov)
	assert.Equal(t, "a", ov.Task.ID)
}

// Every candidate segment is tested, not just the first: a split tail
// landing on an occupied window is a conflict.
func TestFindOverlapChecksEverySegment(t *testing.T) {
	tasks := []model.Task{scheduledTask("a", model.NewSegment(at(15, 0), at(16, 0)))}
	candidate := []model.Segment{
		model.NewSegment(at(9, 0), at(10, 0)),
		model.NewSegment(at(15, 30), at(16, 30)),
	}
	ov := findOverlapIn(tasks, candidate, nil)
	require.NotNil(t, ov)
	assert.Equal(t, at(15, 30), ov.Candidate.Start)
}
