package l6metrics

import (
	"github.com/homecage/reachscope/internal/reach/l5coords"
	"gonum.org/v1/gonum/floats"
)

// DefaultFrameRateHz is the frame rate the analysis assumes when none is
// configured.
const DefaultFrameRateHz = 40.0

// Metrics summarises one reach trajectory. Distances are millimetres and
// speeds millimetres per second. Indexes refer to positions in the
// trajectory, not video frames; use the *Frame fields for those.
type Metrics struct {
	Valid bool `json:"valid"`

	StepSpeeds []float64 `json:"step_speeds,omitempty"`

	MaxSpeed      float64 `json:"max_speed"`
	MaxSpeedIndex int     `json:"max_speed_index"`
	MinSpeed      float64 `json:"min_speed"`
	MinSpeedIndex int     `json:"min_speed_index"`

	// ReachIndex is the point closest to the calibrated origin (the pellet).
	ReachIndex int `json:"reach_index"`
	ReachFrame int `json:"reach_frame"`

	PathForward  float64 `json:"path_forward_mm"`
	PathBackward float64 `json:"path_backward_mm"`
}

// Compute derives metrics from positions sampled at frameRateHz. Fewer
// than two points yields zero metrics with Valid == false.
func Compute(traj l5coords.Trajectory, frameRateHz float64) Metrics {
	if frameRateHz <= 0 {
		frameRateHz = DefaultFrameRateHz
	}
	var m Metrics
	if len(traj) < 2 {
		if len(traj) == 1 {
			m.ReachFrame = traj[0].Frame
		}
		return m
	}

	steps := make([]float64, len(traj)-1)
	for i := range steps {
		steps[i] = traj[i+1].Pos.Distance(traj[i].Pos)
	}
	m.StepSpeeds = make([]float64, len(steps))
	floats.ScaleTo(m.StepSpeeds, frameRateHz, steps)

	m.MaxSpeedIndex = floats.MaxIdx(m.StepSpeeds)
	m.MaxSpeed = m.StepSpeeds[m.MaxSpeedIndex]
	m.MinSpeedIndex = floats.MinIdx(m.StepSpeeds)
	m.MinSpeed = m.StepSpeeds[m.MinSpeedIndex]

	m.ReachIndex = nearestToOrigin(traj)
	m.ReachFrame = traj[m.ReachIndex].Frame

	m.PathForward = floats.Sum(steps[:m.ReachIndex])
	m.PathBackward = floats.Sum(steps[m.ReachIndex:])
	m.Valid = true
	return m
}

// nearestToOrigin returns the first index with the smallest distance to
// the origin.
func nearestToOrigin(traj l5coords.Trajectory) int {
	best := 0
	bestDist := traj[0].Pos.Norm2()
	for i := 1; i < len(traj); i++ {
		if d := traj[i].Pos.Norm2(); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// PathLength is the total distance travelled along the trajectory.
func PathLength(traj l5coords.Trajectory) float64 {
	var total float64
	for i := 1; i < len(traj); i++ {
		total += traj[i].Pos.Distance(traj[i-1].Pos)
	}
	return total
}

// Displacement is the straight-line distance between the first and last
// point.
func Displacement(traj l5coords.Trajectory) float64 {
	if len(traj) < 2 {
		return 0
	}
	return traj[len(traj)-1].Pos.Sub(traj[0].Pos).Norm()
}

// Summary picks the fastest and slowest events of a session.
type Summary struct {
	Events int `json:"events"`

	MaxSpeed      float64 `json:"max_speed"`
	MaxSpeedEvent int     `json:"max_speed_event"`
	MinSpeed      float64 `json:"min_speed"`
	MinSpeedEvent int     `json:"min_speed_event"`
}

// Summarize compares per-event metrics. Invalid entries are skipped but
// still count towards event positions. Ties keep the earliest event.
// With no valid entry both event indexes are -1.
func Summarize(ms []Metrics) Summary {
	s := Summary{MaxSpeedEvent: -1, MinSpeedEvent: -1}
	for i, m := range ms {
		if !m.Valid {
			continue
		}
		s.Events++
		if s.MaxSpeedEvent < 0 || m.MaxSpeed > s.MaxSpeed {
			s.MaxSpeed, s.MaxSpeedEvent = m.MaxSpeed, i
		}
		if s.MinSpeedEvent < 0 || m.MinSpeed < s.MinSpeed {
			s.MinSpeed, s.MinSpeedEvent = m.MinSpeed, i
		}
	}
	return s
}
