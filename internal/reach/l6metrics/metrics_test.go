package l6metrics

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/homecage/reachscope/internal/reach/l5coords"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traj(frame0 int, pts ...r3.Vector) l5coords.Trajectory {
	out := make(l5coords.Trajectory, len(pts))
	for i, p := range pts {
		out[i] = l5coords.Point{Frame: frame0 + i, Pos: p}
	}
	return out
}

func TestComputeOutAndBack(t *testing.T) {
	t.Parallel()

	// Paw moves 3, 4, then 2 mm toward the pellet, then 6 mm back.
	tr := traj(100,
		r3.Vector{X: 9, Y: 0, Z: 0},
		r3.Vector{X: 6, Y: 0, Z: 0},
		r3.Vector{X: 2, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 6, Y: 0, Z: 0},
	)
	m := Compute(tr, 40)
	require.True(t, m.Valid)

	assert.Equal(t, []float64{120, 160, 80, 240}, m.StepSpeeds)
	assert.Equal(t, 240.0, m.MaxSpeed)
	assert.Equal(t, 3, m.MaxSpeedIndex)
	assert.Equal(t, 80.0, m.MinSpeed)
	assert.Equal(t, 2, m.MinSpeedIndex)

	assert.Equal(t, 3, m.ReachIndex)
	assert.Equal(t, 103, m.ReachFrame)
	assert.InDelta(t, 9.0, m.PathForward, 1e-12)
	assert.InDelta(t, 6.0, m.PathBackward, 1e-12)
	assert.InDelta(t, m.PathForward+m.PathBackward, PathLength(tr), 1e-12)
	assert.InDelta(t, 3.0, Displacement(tr), 1e-12)
}

func TestComputeDefaultsFrameRate(t *testing.T) {
	t.Parallel()
	m := Compute(traj(0, r3.Vector{}, r3.Vector{Z: 1}), 0)
	assert.Equal(t, []float64{DefaultFrameRateHz}, m.StepSpeeds)
}

func TestComputeShortTrajectories(t *testing.T) {
	t.Parallel()

	m := Compute(nil, 40)
	assert.False(t, m.Valid)
	assert.Zero(t, m.PathForward)

	m = Compute(traj(7, r3.Vector{X: 1}), 40)
	assert.False(t, m.Valid)
	assert.Equal(t, 7, m.ReachFrame)
	assert.Zero(t, Displacement(traj(7, r3.Vector{X: 1})))
}

func TestReachIndexTiesPickFirst(t *testing.T) {
	t.Parallel()
	m := Compute(traj(0, r3.Vector{X: 2}, r3.Vector{X: 1}, r3.Vector{X: -1}, r3.Vector{X: 3}), 40)
	assert.Equal(t, 1, m.ReachIndex)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	ms := []Metrics{
		{Valid: true, MaxSpeed: 100, MinSpeed: 10},
		{Valid: false, MaxSpeed: 900, MinSpeed: 0},
		{Valid: true, MaxSpeed: 300, MinSpeed: 30},
		{Valid: true, MaxSpeed: 300, MinSpeed: 5},
	}
	s := Summarize(ms)
	assert.Equal(t, Summary{
		Events:        3,
		MaxSpeed:      300,
		MaxSpeedEvent: 2,
		MinSpeed:      5,
		MinSpeedEvent: 3,
	}, s)

	empty := Summarize(nil)
	assert.Equal(t, -1, empty.MaxSpeedEvent)
	assert.Equal(t, -1, empty.MinSpeedEvent)
	assert.Zero(t, empty.Events)
}
