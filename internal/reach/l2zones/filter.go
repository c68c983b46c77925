package l2zones

import (
	"fmt"

	"github.com/homecage/reachscope/internal/reach/l1landmarks"
)

// DefaultConfidenceThreshold is the minimum tracker likelihood for a
// landmark to be kept.
const DefaultConfidenceThreshold = 0.5

// Bounds are the pixel x positions separating the left mirror, center
// view and right mirror.
type Bounds struct {
	LeftX  float64
	RightX float64
}

// Validate checks LeftX < RightX.
func (b Bounds) Validate() error {
	if !(b.LeftX < b.RightX) {
		return fmt.Errorf("zone bounds: left boundary %g must be less than right boundary %g", b.LeftX, b.RightX)
	}
	return nil
}

// Filter applies the per-slot zone rules to frames.
type Filter struct {
	Bounds    Bounds
	Threshold float64
}

// NewFilter returns a filter for the given bounds and confidence threshold.
func NewFilter(b Bounds, threshold float64) *Filter {
	return &Filter{Bounds: b, Threshold: threshold}
}

// Accept reports whether a reading in slot s passes the rules for its group.
func (f *Filter) Accept(s l1landmarks.Slot, r l1landmarks.Reading) bool {
	if !(r.Confidence >= f.Threshold) {
		return false
	}
	switch s.Group() {
	case l1landmarks.GroupLeftMirrorPaw, l1landmarks.GroupLeftMirrorPellet:
		return r.X <= f.Bounds.LeftX
	case l1landmarks.GroupRightMirrorPaw, l1landmarks.GroupRightMirrorPellet:
		return r.X >= f.Bounds.RightX
	case l1landmarks.GroupCenterPellet:
		// The dispenser is always centered.
		return true
	default:
		return r.X >= f.Bounds.LeftX && r.X <= f.Bounds.RightX
	}
}

// Apply filters one frame. Rejected slots become l1landmarks.Invalid.
func (f *Filter) Apply(frame *l1landmarks.Frame) l1landmarks.FrameLandmarks {
	var out l1landmarks.FrameLandmarks
	for i, r := range frame {
		if f.Accept(l1landmarks.Slot(i), r) {
			out[i] = l1landmarks.Landmark{X: r.X, Y: r.Y, Confidence: r.Confidence, Valid: true}
		}
	}
	return out
}

// ApplyTable filters every frame of the table in order.
func (f *Filter) ApplyTable(t *l1landmarks.Table) []l1landmarks.FrameLandmarks {
	out := make([]l1landmarks.FrameLandmarks, t.Len())
	for i := range out {
		out[i] = f.Apply(&t.Frames[i])
	}
	return out
}
