package l5coords

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/homecage/reachscope/internal/calibration"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
)

// Point is a real-world paw position in millimetres for one frame.
type Point struct {
	Frame int
	Pos   r3.Vector
}

// Trajectory is an ordered list of fully resolved points. Frames missing
// any axis are absent.
type Trajectory []Point

// Axes returns the x, y and z sequences. They always have equal length.
func (t Trajectory) Axes() (xs, ys, zs []float64) {
	xs = make([]float64, len(t))
	ys = make([]float64, len(t))
	zs = make([]float64, len(t))
	for i, p := range t {
		xs[i], ys[i], zs[i] = p.Pos.X, p.Pos.Y, p.Pos.Z
	}
	return xs, ys, zs
}

// Frames returns the frame index of each point.
func (t Trajectory) Frames() []int {
	out := make([]int, len(t))
	for i, p := range t {
		out[i] = p.Frame
	}
	return out
}

// axisScale is origin and px/mm for one axis. sign is +1 when real-world
// values grow with pixel values and -1 when image coordinates run the
// other way.
type axisScale struct {
	origin  float64
	pxPerMM float64
	sign    float64
}

func (s axisScale) apply(v l4trajectory.Sample) l4trajectory.Sample {
	if !v.Valid {
		return l4trajectory.Sample{}
	}
	return l4trajectory.Some(s.sign * (v.Value - s.origin) / s.pxPerMM)
}

// Mapper converts pixel trajectories to millimetres for one hand.
type Mapper struct {
	hand    l4trajectory.Hand
	x, y, z axisScale
}

// NewMapper selects the mirror calibration that matches hand. The profile
// must already be validated.
func NewMapper(p calibration.Profile, hand l4trajectory.Hand) (*Mapper, error) {
	var mirror calibration.Mirror
	switch hand {
	case l4trajectory.Left:
		mirror = p.LeftMirror
	case l4trajectory.Right:
		mirror = p.RightMirror
	default:
		return nil, fmt.Errorf("unsupported hand %v", hand)
	}
	return &Mapper{
		hand: hand,
		x:    axisScale{origin: p.Center.OriginX, pxPerMM: p.Center.PxPerMMX, sign: 1},
		y:    axisScale{origin: mirror.OriginY, pxPerMM: mirror.PxPerMMY, sign: -1},
		z:    axisScale{origin: mirror.OriginZ, pxPerMM: mirror.PxPerMMZ, sign: -1},
	}, nil
}

// MapPoint converts one pixel point. Missing axes stay missing.
func (m *Mapper) MapPoint(p l4trajectory.PixelPoint) l4trajectory.PixelPoint {
	return l4trajectory.PixelPoint{
		Frame: p.Frame,
		X:     m.x.apply(p.X),
		Y:     m.y.apply(p.Y),
		Z:     m.z.apply(p.Z),
	}
}

// Map converts a raw trajectory and drops every frame with a missing axis,
// so the three axis sequences stay aligned.
func (m *Mapper) Map(raw l4trajectory.RawTrajectory) (Trajectory, error) {
	if raw.Hand != m.hand {
		return nil, fmt.Errorf("trajectory reconstructed for %v, mapper configured for %v", raw.Hand, m.hand)
	}
	out := make(Trajectory, 0, len(raw.Points))
	for _, p := range raw.Points {
		mp := m.MapPoint(p)
		if !mp.X.Valid || !mp.Y.Valid || !mp.Z.Valid {
			continue
		}
		out = append(out, Point{
			Frame: p.Frame,
			Pos:   r3.Vector{X: mp.X.Value, Y: mp.Y.Value, Z: mp.Z.Value},
		})
	}
	return out, nil
}
