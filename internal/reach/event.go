// Package reach holds the ReachEvent type shared by the pipeline and its
// sinks. Layer packages (l1landmarks through l6metrics) never import it.
package reach

import (
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/homecage/reachscope/internal/reach/l5coords"
	"github.com/homecage/reachscope/internal/reach/l6metrics"
)

// UnscoredLabel is the label every extracted event starts with. Human
// scorers replace it in the record file or through the store.
const UnscoredLabel = "UNSCORED"

// RawColumnCount is the number of raw tracker values carried alongside
// each trajectory point in output records.
const RawColumnCount = 24

// Event is one extracted reach with its real-world trajectory. It owns
// all of its data and holds no reference into the source table.
type Event struct {
	ID    string
	Index int // position of the event within its run, from 0
	Span  l3events.Span
	Hand  l4trajectory.Hand
	Label string

	Trajectory l5coords.Trajectory
	// RawColumns[i] holds the raw values of the frame of Trajectory[i].
	RawColumns [][]float64

	Metrics l6metrics.Metrics
}

// Scored reports whether a human label has replaced UnscoredLabel.
func (e *Event) Scored() bool {
	return e.Label != "" && e.Label != UnscoredLabel
}

// Empty reports whether no frame of the event had a fully resolved paw
// position.
func (e *Event) Empty() bool { return len(e.Trajectory) == 0 }
