package l5coords

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/homecage/reachscope/internal/calibration"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile() calibration.Profile {
	return calibration.Profile{
		LeftBoundaryX:  300,
		RightBoundaryX: 900,
		LeftMirror:     calibration.Mirror{PxPerMMY: 10, PxPerMMZ: 5, OriginY: 200, OriginZ: 150},
		Center:         calibration.Center{PxPerMMX: 4, PxPerMMY: 4, OriginX: 600, OriginY: 300},
		RightMirror:    calibration.Mirror{PxPerMMY: 8, PxPerMMZ: 2, OriginY: 220, OriginZ: 1000},
	}
}

func px(frame int, x, y, z float64) l4trajectory.PixelPoint {
	return l4trajectory.PixelPoint{
		Frame: frame,
		X:     l4trajectory.Some(x),
		Y:     l4trajectory.Some(y),
		Z:     l4trajectory.Some(z),
	}
}

func TestMapLeft(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(profile(), l4trajectory.Left)
	require.NoError(t, err)

	raw := l4trajectory.RawTrajectory{
		Span:   l3events.Span{Start: 10, Stop: 11},
		Hand:   l4trajectory.Left,
		Points: []l4trajectory.PixelPoint{px(10, 620, 180, 140), px(11, 600, 200, 160)},
	}
	traj, err := m.Map(raw)
	require.NoError(t, err)
	require.Len(t, traj, 2)
	assert.Equal(t, Point{Frame: 10, Pos: r3.Vector{X: 5, Y: 2, Z: 2}}, traj[0])
	assert.Equal(t, Point{Frame: 11, Pos: r3.Vector{X: 0, Y: 0, Z: -2}}, traj[1])
}

func TestMapRightUsesRightMirror(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(profile(), l4trajectory.Right)
	require.NoError(t, err)

	p := m.MapPoint(px(0, 600, 212, 990))
	assert.Equal(t, l4trajectory.Some(0), p.X)
	assert.Equal(t, l4trajectory.Some(1), p.Y)
	assert.Equal(t, l4trajectory.Some(5), p.Z)

	_, err = m.Map(l4trajectory.RawTrajectory{Hand: l4trajectory.Left})
	assert.Error(t, err)
}

func TestMapDropsIncompletePoints(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(profile(), l4trajectory.Left)
	require.NoError(t, err)

	missingY := px(2, 600, 0, 150)
	missingY.Y = l4trajectory.Sample{}
	allMissing := l4trajectory.PixelPoint{Frame: 3}

	traj, err := m.Map(l4trajectory.RawTrajectory{
		Hand:   l4trajectory.Left,
		Points: []l4trajectory.PixelPoint{px(1, 600, 200, 150), missingY, allMissing, px(4, 604, 190, 145)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, traj.Frames())

	xs, ys, zs := traj.Axes()
	assert.Len(t, xs, 2)
	assert.Len(t, ys, 2)
	assert.Len(t, zs, 2)
	assert.Equal(t, []float64{0, 1}, xs)
}

func TestMapEmptyTrajectory(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(profile(), l4trajectory.Left)
	require.NoError(t, err)
	traj, err := m.Map(l4trajectory.RawTrajectory{
		Hand:   l4trajectory.Left,
		Points: []l4trajectory.PixelPoint{{Frame: 0}, {Frame: 1}},
	})
	require.NoError(t, err)
	assert.Empty(t, traj)
}

// Equal pixel steps give equal real-world steps of 1/scale.
func TestMapIsLinearAndMonotonic(t *testing.T) {
	t.Parallel()
	m, err := NewMapper(profile(), l4trajectory.Left)
	require.NoError(t, err)

	prev := m.MapPoint(px(0, 400, 100, 100)).X.Value
	for pixel := 401.0; pixel <= 800; pixel++ {
		cur := m.MapPoint(px(0, pixel, 100, 100)).X.Value
		assert.Greater(t, cur, prev)
		assert.InDelta(t, 1.0/4, cur-prev, 1e-9)
		prev = cur
	}
}

func TestNewMapperRejectsUnknownHand(t *testing.T) {
	_, err := NewMapper(profile(), l4trajectory.Hand(3))
	assert.Error(t, err)
}
