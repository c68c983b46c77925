package pipeline

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/homecage/reachscope/internal/calibration"
	"github.com/homecage/reachscope/internal/monitoring"
	"github.com/homecage/reachscope/internal/reach"
	"github.com/homecage/reachscope/internal/reach/l1landmarks"
	"github.com/homecage/reachscope/internal/reach/l2zones"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/homecage/reachscope/internal/reach/l5coords"
	"github.com/homecage/reachscope/internal/reach/l6metrics"
)

// Config holds everything a run needs besides the table and calibration.
type Config struct {
	// ConfidenceThreshold is the zone filter's per-landmark threshold.
	ConfidenceThreshold float64
	Segment             l3events.Params
	Hand                l4trajectory.Hand
	// Workers bounds per-event parallelism. <= 0 means runtime.NumCPU().
	Workers     int
	FrameRateHz float64
}

// DefaultConfig returns the rig defaults for the left hand.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: l2zones.DefaultConfidenceThreshold,
		Segment:             l3events.DefaultParams(),
		Hand:                l4trajectory.Left,
		FrameRateHz:         l6metrics.DefaultFrameRateHz,
	}
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Result summarises a run.
type Result struct {
	Frames int
	Events int
	// EmptyEvents counts events whose trajectory had no resolved frame.
	EmptyEvents int
	// Truncated is set when an event was still open at the end of the
	// table. That event is not emitted.
	Truncated *l3events.Span
}

// Run extracts reach events from table and writes them to sink in
// start-frame order. Any error aborts the run; events already written to
// the sink stay written.
func Run(table *l1landmarks.Table, profile calibration.Profile, cfg Config, sink Sink) (Result, error) {
	defer monitoring.Timed("reach: run")()
	var res Result
	if table == nil {
		return res, fmt.Errorf("nil landmark table")
	}
	if sink == nil {
		return res, fmt.Errorf("nil sink")
	}
	if err := profile.Validate(); err != nil {
		return res, fmt.Errorf("calibration: %w", err)
	}
	mapper, err := l5coords.NewMapper(profile, cfg.Hand)
	if err != nil {
		return res, err
	}
	res.Frames = table.Len()

	filter := l2zones.NewFilter(profile.Bounds(), cfg.ConfidenceThreshold)
	frames := filter.ApplyTable(table)

	seg, err := l3events.NewSegmenter(frames, cfg.Segment)
	if err != nil {
		return res, fmt.Errorf("segmenter: %w", err)
	}
	var spans []l3events.Span
	for span := range seg.All() {
		spans = append(spans, span)
	}
	if open, ok := seg.Truncated(); ok {
		res.Truncated = &open
		monitoring.Logf("reach: dropping event %v still open at end of table (%d frames)", open, res.Frames)
	}

	events := make([]*reach.Event, len(spans))
	var g errgroup.Group
	g.SetLimit(cfg.workers())
	for i, span := range spans {
		g.Go(func() error {
			ev, err := buildEvent(table, frames, span, cfg, mapper)
			if err != nil {
				return fmt.Errorf("event %d %v: %w", i, span, err)
			}
			ev.Index = i
			events[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for _, ev := range events {
		if ev.Empty() {
			res.EmptyEvents++
		}
		if err := sink.WriteEvent(ev); err != nil {
			return res, fmt.Errorf("sink event %d: %w", ev.Index, err)
		}
		res.Events++
	}
	monitoring.Logf("reach: %d frames, %d events (%d empty), hand %v", res.Frames, res.Events, res.EmptyEvents, cfg.Hand)
	return res, nil
}

// buildEvent reconstructs, maps and measures one span. It reads shared
// inputs and allocates everything it returns.
func buildEvent(table *l1landmarks.Table, frames []l1landmarks.FrameLandmarks, span l3events.Span, cfg Config, mapper *l5coords.Mapper) (*reach.Event, error) {
	raw, err := l4trajectory.Reconstruct(frames, span, cfg.Hand)
	if err != nil {
		return nil, err
	}
	traj, err := mapper.Map(raw)
	if err != nil {
		return nil, err
	}
	cols := make([][]float64, len(traj))
	for i, p := range traj {
		cols[i] = table.Frames[p.Frame].Columns(reach.RawColumnCount)
	}
	return &reach.Event{
		ID:         uuid.New().String(),
		Span:       span,
		Hand:       cfg.Hand,
		Label:      reach.UnscoredLabel,
		Trajectory: traj,
		RawColumns: cols,
		Metrics:    l6metrics.Compute(traj, cfg.FrameRateHz),
	}, nil
}
