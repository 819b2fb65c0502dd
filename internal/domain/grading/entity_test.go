package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graded(t *testing.T, mark int) *Homework {
	t.Helper()
	h, err := NewPlaceholder("user-1", "lesson-"+string(rune('a'+mark%26)), "course-1")
	require.NoError(t, err)
	require.NoError(t, h.SetMark(mark))
	return h
}

func ungraded(t *testing.T) *Homework {
	t.Helper()
	h, err := NewPlaceholder("user-1", "lesson-x", "course-1")
	require.NoError(t, err)
	return h
}

func TestCompute_AllGradedAboveThreshold(t *testing.T) {
	hws := []*Homework{graded(t, 85), graded(t, 85), graded(t, 85), graded(t, 85), graded(t, 85)}

	m := Compute("user-1", "course-1", hws, DefaultPassThreshold)
	assert.InDelta(t, 85.0, m.TotalScore, 0.001)
	assert.True(t, m.Passed)
}

func TestCompute_ExactThresholdPasses(t *testing.T) {
	hws := []*Homework{graded(t, 80), graded(t, 80)}

	m := Compute("user-1", "course-1", hws, DefaultPassThreshold)
	assert.InDelta(t, 80.0, m.TotalScore, 0.001)
	assert.True(t, m.Passed, "average equal to the threshold passes")
}

func TestCompute_JustBelowThresholdFails(t *testing.T) {
	hws := []*Homework{graded(t, 80), graded(t, 79)}

	m := Compute("user-1", "course-1", hws, DefaultPassThreshold)
	assert.InDelta(t, 79.5, m.TotalScore, 0.001)
	assert.False(t, m.Passed)
}

func TestCompute_UngradedBlocksPassing(t *testing.T) {
	// High average, but one placeholder is still ungraded.
	hws := []*Homework{graded(t, 100), graded(t, 100), ungraded(t)}

	m := Compute("user-1", "course-1", hws, DefaultPassThreshold)
	assert.InDelta(t, 100.0, m.TotalScore, 0.001, "ungraded rows are excluded from the average")
	assert.False(t, m.Passed, "ungraded rows block passing")
}

func TestCompute_NoHomeworksNeverPasses(t *testing.T) {
	m := Compute("user-1", "course-1", nil, 0)
	assert.Zero(t, m.TotalScore)
	assert.False(t, m.Passed, "a pair with no rows never passes, even at threshold 0")
}

func TestCompute_RegradeChangesOutcome(t *testing.T) {
	hws := []*Homework{graded(t, 85), graded(t, 85), graded(t, 85), graded(t, 85), graded(t, 85)}

	m := Compute("user-1", "course-1", hws, DefaultPassThreshold)
	require.True(t, m.Passed)

	// Regrading one homework down drags the average below the bar.
	require.NoError(t, hws[4].SetMark(40))
	m = Compute("user-1", "course-1", hws, DefaultPassThreshold)
	assert.InDelta(t, 76.0, m.TotalScore, 0.001)
	assert.False(t, m.Passed)
}

func TestHomework_Attach(t *testing.T) {
	h := ungraded(t)
	require.Nil(t, h.SubmittedAt)

	err := h.Attach("s3://bucket/file.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/file.tar.gz", h.FileRef)
	assert.NotNil(t, h.SubmittedAt)

	assert.Error(t, h.Attach(""), "empty file reference")
}

func TestHomework_SetMark_Bounds(t *testing.T) {
	h := ungraded(t)

	assert.Error(t, h.SetMark(-1))
	assert.Error(t, h.SetMark(101))

	require.NoError(t, h.SetMark(0))
	require.True(t, h.IsGraded())
	require.NoError(t, h.SetMark(100))
	assert.Equal(t, 100, *h.Mark)
}

func TestCourseMark_Finalize(t *testing.T) {
	m := Compute("user-1", "course-1", []*Homework{graded(t, 50), ungraded(t)}, DefaultPassThreshold)
	require.False(t, m.Passed)

	m.Finalize()
	assert.True(t, m.Passed)
	assert.InDelta(t, 50.0, m.TotalScore, 0.001, "finalize keeps the current average")
}
