package l3events

import (
	"fmt"
	"iter"

	"github.com/homecage/reachscope/internal/reach/l1landmarks"
	"gonum.org/v1/gonum/floats"
)

// Span is an inclusive frame range.
type Span struct {
	Start int
	Stop  int
}

// Len returns the number of frames in the span.
func (s Span) Len() int { return s.Stop - s.Start + 1 }

func (s Span) String() string { return fmt.Sprintf("[%d, %d]", s.Start, s.Stop) }

// Params configures segmentation. Zero values are not defaults; use
// DefaultParams and override fields.
type Params struct {
	// LikelihoodThreshold splits frames into positive (>=) and negative (<).
	LikelihoodThreshold float64
	// MinFramesEventStart is the contiguous positive run that opens an event.
	MinFramesEventStart int
	// MaxFramesEventStop is the contiguous negative run that closes an event.
	MaxFramesEventStop int
	// MinFramesBetweenEvents is skipped after an event closes.
	MinFramesBetweenEvents int
	// EventEndPadding frames are appended after the closing frame.
	EventEndPadding int
	// PreRollFrames before the opening run are prepended to the event.
	PreRollFrames int
	// ScoreSlots are averaged for the frame score. Nil means every paw slot.
	ScoreSlots []l1landmarks.Slot
}

// DefaultParams returns the rig's standard segmentation parameters.
func DefaultParams() Params {
	return Params{
		LikelihoodThreshold:    0.5,
		MinFramesEventStart:    10,
		MaxFramesEventStop:     20,
		MinFramesBetweenEvents: 30,
		EventEndPadding:        80,
		PreRollFrames:          20,
	}
}

// Validate rejects parameter sets that cannot segment anything.
func (p Params) Validate() error {
	if p.MinFramesEventStart < 1 {
		return fmt.Errorf("min_frames_event_start must be >= 1, got %d", p.MinFramesEventStart)
	}
	if p.MaxFramesEventStop < 1 {
		return fmt.Errorf("max_frames_event_stop must be >= 1, got %d", p.MaxFramesEventStop)
	}
	if p.MinFramesBetweenEvents < 0 || p.EventEndPadding < 0 || p.PreRollFrames < 0 {
		return fmt.Errorf("frame counts must be non-negative")
	}
	for _, s := range p.ScoreSlots {
		if s < 0 || s >= l1landmarks.SlotCount {
			return fmt.Errorf("score slot %d out of range", s)
		}
	}
	return nil
}

// Score is the mean confidence of the valid landmarks among slots. Invalid
// slots are left out of both the sum and the count; a frame with no valid
// landmark scores 0.
func Score(frame *l1landmarks.FrameLandmarks, slots []l1landmarks.Slot) float64 {
	conf := make([]float64, 0, len(slots))
	for _, s := range slots {
		if lm := frame[s]; lm.Valid {
			conf = append(conf, lm.Confidence)
		}
	}
	if len(conf) == 0 {
		return 0
	}
	return floats.Sum(conf) / float64(len(conf))
}

type state int

const (
	stateIdle state = iota
	stateInEvent
)

// Segmenter scans filtered frames once, in increasing order, and yields
// event spans as they close. It cannot be rewound.
type Segmenter struct {
	frames []l1landmarks.FrameLandmarks
	params Params
	slots  []l1landmarks.Slot

	row   int
	state state

	posRun   int
	runStart int
	negRun   int
	start    int

	truncated *Span
}

// NewSegmenter prepares a scan over frames. The slice is read, never modified.
func NewSegmenter(frames []l1landmarks.FrameLandmarks, p Params) (*Segmenter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	slots := p.ScoreSlots
	if slots == nil {
		slots = l1landmarks.PawSlots()
	}
	return &Segmenter{frames: frames, params: p, slots: slots}, nil
}

// Next advances the scan to the next closed event. It returns false once
// the last frame has been consumed.
func (s *Segmenter) Next() (Span, bool) {
	n := len(s.frames)
	for s.row < n {
		row := s.row
		s.row++
		positive := Score(&s.frames[row], s.slots) >= s.params.LikelihoodThreshold

		switch s.state {
		case stateIdle:
			if !positive {
				s.posRun = 0
				continue
			}
			if s.posRun == 0 {
				s.runStart = row
			}
			s.posRun++
			if s.posRun >= s.params.MinFramesEventStart {
				s.state = stateInEvent
				s.start = max(0, s.runStart-s.params.PreRollFrames)
				s.negRun = 0
			}

		case stateInEvent:
			if positive {
				s.negRun = 0
				continue
			}
			s.negRun++
			if s.negRun < s.params.MaxFramesEventStop {
				continue
			}
			span := Span{Start: s.start, Stop: min(row+s.params.EventEndPadding, n-1)}
			s.state = stateIdle
			s.posRun = 0
			s.negRun = 0
			s.row = row + 1 + s.params.MinFramesBetweenEvents
			return span, true
		}
	}

	if s.state == stateInEvent && s.truncated == nil {
		open := Span{Start: s.start, Stop: n - 1}
		s.truncated = &open
	}
	return Span{}, false
}

// All yields every remaining span. Iterating it consumes the segmenter.
func (s *Segmenter) All() iter.Seq[Span] {
	return func(yield func(Span) bool) {
		for {
			span, ok := s.Next()
			if !ok || !yield(span) {
				return
			}
		}
	}
}

// Truncated reports an event that was still open when the table ended.
// Such events are dropped rather than emitted with a partial tail; the
// span is returned so callers can log it. Valid only after Next has
// returned false.
func (s *Segmenter) Truncated() (Span, bool) {
	if s.truncated == nil {
		return Span{}, false
	}
	return *s.truncated, true
}

// Segment runs a full scan and returns the closed events in order.
func Segment(frames []l1landmarks.FrameLandmarks, p Params) ([]Span, error) {
	seg, err := NewSegmenter(frames, p)
	if err != nil {
		return nil, err
	}
	var out []Span
	for span := range seg.All() {
		out = append(out, span)
	}
	return out, nil
}
