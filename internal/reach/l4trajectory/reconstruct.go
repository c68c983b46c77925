package l4trajectory

import (
	"errors"
	"fmt"

	"github.com/homecage/reachscope/internal/reach/l1landmarks"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"gonum.org/v1/gonum/stat"
)

// ErrTrajectoryLengthMismatch signals a reconstruction bug: an axis ended
// up with a different number of samples than the span has frames.
var ErrTrajectoryLengthMismatch = errors.New("trajectory length mismatch")

// Sample is an optional pixel or real-world coordinate.
type Sample struct {
	Value float64
	Valid bool
}

// Some returns a valid sample.
func Some(v float64) Sample { return Sample{Value: v, Valid: true} }

// PixelPoint is the reconstructed pixel position of the paw in one frame.
type PixelPoint struct {
	Frame int
	X     Sample
	Y     Sample
	Z     Sample
}

// Axis returns the sample for axis a.
func (p PixelPoint) Axis(a Axis) Sample {
	switch a {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	default:
		return p.Z
	}
}

// RawTrajectory is one PixelPoint per frame of Span, in frame order.
type RawTrajectory struct {
	Span   l3events.Span
	Hand   Hand
	Points []PixelPoint
}

// frameValue averages the chosen pixel component over the valid slots.
// ok is false when none of the slots is valid.
func frameValue(frame *l1landmarks.FrameLandmarks, src axisSource) (float64, bool) {
	vals := make([]float64, 0, len(src.slots))
	for _, s := range src.slots {
		lm := frame[s]
		if !lm.Valid {
			continue
		}
		if src.component == pixelX {
			vals = append(vals, lm.X)
		} else {
			vals = append(vals, lm.Y)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	return stat.Mean(vals, nil), true
}

// forwardFill tracks the last usable value of one axis across frames.
type forwardFill struct {
	last Sample
}

// next applies the gap policy: a positive value is used and remembered;
// anything else falls back to the last remembered value, or missing when
// nothing has been seen yet. Pixel coordinates in this rig are never zero
// or negative, so non-positive means untracked.
func (f *forwardFill) next(v float64, ok bool) Sample {
	if ok && v > 0 {
		f.last = Some(v)
		return f.last
	}
	return f.last
}

// Reconstruct builds the pixel trajectory for span from filtered frames.
// The span must lie within frames.
func Reconstruct(frames []l1landmarks.FrameLandmarks, span l3events.Span, hand Hand) (RawTrajectory, error) {
	sources, ok := handSources[hand]
	if !ok {
		return RawTrajectory{}, fmt.Errorf("unsupported hand %v", hand)
	}
	if span.Start < 0 || span.Stop >= len(frames) || span.Start > span.Stop {
		return RawTrajectory{}, fmt.Errorf("span %v outside table of %d frames", span, len(frames))
	}

	var axes [axisCount][]Sample
	for a := range axes {
		axes[a] = make([]Sample, 0, span.Len())
	}
	var fill [axisCount]forwardFill
	for f := span.Start; f <= span.Stop; f++ {
		for a := Axis(0); a < axisCount; a++ {
			v, ok := frameValue(&frames[f], sources[a])
			axes[a] = append(axes[a], fill[a].next(v, ok))
		}
	}

	for a := Axis(0); a < axisCount; a++ {
		if len(axes[a]) != span.Len() {
			return RawTrajectory{}, fmt.Errorf("%w: span %v axis %v has %d samples, want %d",
				ErrTrajectoryLengthMismatch, span, a, len(axes[a]), span.Len())
		}
	}

	points := make([]PixelPoint, span.Len())
	for i := range points {
		points[i] = PixelPoint{
			Frame: span.Start + i,
			X:     axes[AxisX][i],
			Y:     axes[AxisY][i],
			Z:     axes[AxisZ][i],
		}
	}
	return RawTrajectory{Span: span, Hand: hand, Points: points}, nil
}
