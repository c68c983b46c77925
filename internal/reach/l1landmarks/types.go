package l1landmarks

import "fmt"

// Slot indices in the tracker output. The layout is a fixed contract of
// the pose tracker model; the zone rules in l2zones are keyed off Group.
const (
	LeftMirrorPaw0 Slot = iota
	LeftMirrorPaw1
	LeftMirrorPaw2
	LeftMirrorPaw3
	LeftMirrorPaw4
	CenterPaw0
	CenterPaw1
	CenterPaw2
	CenterPaw3
	CenterPaw4
	RightMirrorPaw0
	RightMirrorPaw1
	RightMirrorPaw2
	RightMirrorPaw3
	RightMirrorPaw4
	LeftMirrorPellet
	CenterPellet
	RightMirrorPellet
	CenterFace0
	CenterFace1
	CenterFace2
	CenterFace3
	CenterFace4
	CenterFace5

	// SlotCount is the number of landmark slots per frame.
	SlotCount = 24
)

// ValuesPerSlot is the number of tracker columns per slot (x, y, likelihood).
const ValuesPerSlot = 3

// Slot identifies one landmark position within a frame.
type Slot int

// Group is the semantic group a slot belongs to.
type Group int

const (
	GroupLeftMirrorPaw Group = iota
	GroupCenterPaw
	GroupRightMirrorPaw
	GroupLeftMirrorPellet
	GroupCenterPellet
	GroupRightMirrorPellet
	GroupCenterFace
)

var groupNames = [...]string{
	GroupLeftMirrorPaw:     "left_mirror_paw",
	GroupCenterPaw:         "center_paw",
	GroupRightMirrorPaw:    "right_mirror_paw",
	GroupLeftMirrorPellet:  "left_mirror_pellet",
	GroupCenterPellet:      "center_pellet",
	GroupRightMirrorPellet: "right_mirror_pellet",
	GroupCenterFace:        "center_face",
}

func (g Group) String() string {
	if g < 0 || int(g) >= len(groupNames) {
		return fmt.Sprintf("group(%d)", int(g))
	}
	return groupNames[g]
}

// Group returns the semantic group for the slot.
func (s Slot) Group() Group {
	switch {
	case s >= LeftMirrorPaw0 && s <= LeftMirrorPaw4:
		return GroupLeftMirrorPaw
	case s >= CenterPaw0 && s <= CenterPaw4:
		return GroupCenterPaw
	case s >= RightMirrorPaw0 && s <= RightMirrorPaw4:
		return GroupRightMirrorPaw
	case s == LeftMirrorPellet:
		return GroupLeftMirrorPellet
	case s == CenterPellet:
		return GroupCenterPellet
	case s == RightMirrorPellet:
		return GroupRightMirrorPellet
	default:
		return GroupCenterFace
	}
}

// SlotsIn returns the slots of a group in index order.
func SlotsIn(g Group) []Slot {
	var out []Slot
	for s := Slot(0); s < SlotCount; s++ {
		if s.Group() == g {
			out = append(out, s)
		}
	}
	return out
}

// PawSlots returns every paw slot across the three views, the default
// slot set used for frame scoring.
func PawSlots() []Slot {
	out := SlotsIn(GroupLeftMirrorPaw)
	out = append(out, SlotsIn(GroupCenterPaw)...)
	return append(out, SlotsIn(GroupRightMirrorPaw)...)
}

// Reading is one raw tracker value for a slot.
type Reading struct {
	X          float64
	Y          float64
	Confidence float64
}

// Landmark is a filtered slot value. A Landmark with Valid == false is the
// Invalid sentinel and its coordinates carry no meaning.
type Landmark struct {
	X          float64
	Y          float64
	Confidence float64
	Valid      bool
}

// Invalid is the rejected-landmark sentinel.
var Invalid = Landmark{}

// Frame holds the raw readings for every slot of one video frame.
type Frame [SlotCount]Reading

// FrameLandmarks holds the filtered landmarks for one video frame.
type FrameLandmarks [SlotCount]Landmark

// Columns flattens the first n raw values of the frame in tracker column
// order (x, y, likelihood per slot).
func (f *Frame) Columns(n int) []float64 {
	if n > SlotCount*ValuesPerSlot {
		n = SlotCount * ValuesPerSlot
	}
	out := make([]float64, 0, n)
	for _, r := range f {
		for _, v := range [ValuesPerSlot]float64{r.X, r.Y, r.Confidence} {
			if len(out) == n {
				return out
			}
			out = append(out, v)
		}
	}
	return out
}

// Table is the per-frame tracker output for one video. Frame index equals
// the position in Frames. A Table is read-only once built.
type Table struct {
	Frames []Frame
}

// Len returns the number of frames in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Frames)
}
