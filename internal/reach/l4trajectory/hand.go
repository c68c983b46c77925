package l4trajectory

import (
	"fmt"
	"strings"

	"github.com/homecage/reachscope/internal/reach/l1landmarks"
)

// Hand selects which mirror view supplies the y and z axes.
type Hand int

const (
	Left Hand = iota
	Right
)

func (h Hand) String() string {
	switch h {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	default:
		return fmt.Sprintf("Hand(%d)", int(h))
	}
}

// ParseHand accepts "left" or "right" in any case.
func ParseHand(s string) (Hand, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEFT":
		return Left, nil
	case "RIGHT":
		return Right, nil
	default:
		return 0, fmt.Errorf("unknown reaching hand %q (want LEFT or RIGHT)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h Hand) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hand) UnmarshalText(b []byte) error {
	v, err := ParseHand(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// Axis is a reconstructed real-world axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	axisCount
)

func (a Axis) String() string {
	return [...]string{"x", "y", "z"}[a]
}

// component picks which pixel coordinate of a landmark feeds an axis.
type component int

const (
	pixelX component = iota
	pixelY
)

// axisSource is the slot set and pixel component averaged for one axis.
type axisSource struct {
	slots     []l1landmarks.Slot
	component component
}

// handSources maps each hand to its per-axis sources. The mirror view
// gives y from pixel y and z from pixel x; the center view gives x.
var handSources = map[Hand][axisCount]axisSource{
	Left: {
		AxisX: {slots: []l1landmarks.Slot{l1landmarks.CenterPaw2, l1landmarks.CenterPaw3}, component: pixelX},
		AxisY: {slots: []l1landmarks.Slot{l1landmarks.LeftMirrorPaw1, l1landmarks.LeftMirrorPaw2}, component: pixelY},
		AxisZ: {slots: []l1landmarks.Slot{l1landmarks.LeftMirrorPaw1, l1landmarks.LeftMirrorPaw2}, component: pixelX},
	},
	Right: {
		AxisX: {slots: l1landmarks.SlotsIn(l1landmarks.GroupCenterPaw), component: pixelX},
		AxisY: {slots: []l1landmarks.Slot{l1landmarks.RightMirrorPaw2}, component: pixelY},
		AxisZ: {slots: []l1landmarks.Slot{l1landmarks.RightMirrorPaw2}, component: pixelX},
	},
}

// Slots returns the landmark slots that feed axis a for hand h.
func (h Hand) Slots(a Axis) []l1landmarks.Slot {
	src, ok := handSources[h]
	if !ok {
		return nil
	}
	return src[a].slots
}
