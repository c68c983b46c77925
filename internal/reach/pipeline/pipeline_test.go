package pipeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecage/reachscope/internal/calibration"
	"github.com/homecage/reachscope/internal/reach"
	"github.com/homecage/reachscope/internal/reach/l1landmarks"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/homecage/reachscope/internal/testutil"
)

func TestRunSingleBurst(t *testing.T) {
	t.Parallel()

	var got Collector
	res, err := Run(testutil.BurstTable(200, [2]int{50, 65}), testutil.Profile(), DefaultConfig(), &got)
	require.NoError(t, err)

	assert.Equal(t, 200, res.Frames)
	assert.Equal(t, 1, res.Events)
	assert.Nil(t, res.Truncated)
	require.Len(t, got.Events, 1)

	ev := got.Events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 0, ev.Index)
	assert.Equal(t, l3events.Span{Start: 30, Stop: 165}, ev.Span)
	assert.Equal(t, reach.UnscoredLabel, ev.Label)
	assert.Equal(t, l4trajectory.Left, ev.Hand)

	// Frames 30-49 have nothing to fill from and are dropped; 50 onwards
	// are tracked or forward filled.
	require.LessOrEqual(t, len(ev.Trajectory), ev.Span.Len())
	require.Len(t, ev.Trajectory, 116)
	assert.Equal(t, 50, ev.Trajectory[0].Frame)
	assert.Equal(t, 165, ev.Trajectory[len(ev.Trajectory)-1].Frame)

	first := ev.Trajectory[0].Pos
	assert.InDelta(t, 5.0, first.X, 1e-9)
	assert.InDelta(t, 2.0, first.Y, 1e-9)
	assert.InDelta(t, 10.0, first.Z, 1e-9)

	require.Len(t, ev.RawColumns, len(ev.Trajectory))
	assert.Len(t, ev.RawColumns[0], reach.RawColumnCount)
	assert.Equal(t, []float64{100, 180, 0.9}, ev.RawColumns[0][:3])
	assert.Equal(t, []float64{115, 180, 0.9}, ev.RawColumns[15][:3])
	// Filled frames carry their own (untracked) raw columns.
	assert.Equal(t, []float64{0, 0, 0}, ev.RawColumns[20][:3])

	assert.True(t, ev.Metrics.Valid)
	assert.Len(t, ev.Metrics.StepSpeeds, len(ev.Trajectory)-1)
}

func TestRunEmitsInStartOrder(t *testing.T) {
	t.Parallel()

	table := testutil.BurstTable(500, [2]int{50, 65}, [2]int{300, 315})
	cfg := DefaultConfig()
	cfg.Workers = 4

	var got Collector
	res, err := Run(table, testutil.Profile(), cfg, &got)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Events)

	spans := make([]l3events.Span, 0, len(got.Events))
	for i, ev := range got.Events {
		assert.Equal(t, i, ev.Index)
		spans = append(spans, ev.Span)
	}
	assert.Equal(t, []l3events.Span{{Start: 30, Stop: 165}, {Start: 280, Stop: 415}}, spans)
	assert.NotEqual(t, got.Events[0].ID, got.Events[1].ID)
}

func TestRunIsIndependentOfWorkerCount(t *testing.T) {
	t.Parallel()

	table := testutil.BurstTable(1000, [2]int{50, 65}, [2]int{300, 330}, [2]int{600, 620}, [2]int{800, 812})
	run := func(workers int) []*reach.Event {
		cfg := DefaultConfig()
		cfg.Workers = workers
		var c Collector
		_, err := Run(table, testutil.Profile(), cfg, &c)
		require.NoError(t, err)
		return c.Events
	}

	serial := run(1)
	parallel := run(8)
	require.Len(t, serial, 4)
	if diff := cmp.Diff(serial, parallel, cmpopts.IgnoreFields(reach.Event{}, "ID")); diff != "" {
		t.Errorf("worker count changed output (-1 +8):\n%s", diff)
	}
}

func TestRunReportsTruncatedEvent(t *testing.T) {
	t.Parallel()

	var got Collector
	res, err := Run(testutil.BurstTable(200, [2]int{180, 199}), testutil.Profile(), DefaultConfig(), &got)
	require.NoError(t, err)
	assert.Empty(t, got.Events)
	require.NotNil(t, res.Truncated)
	assert.Equal(t, l3events.Span{Start: 160, Stop: 199}, *res.Truncated)
}

func TestRunRightHand(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Hand = l4trajectory.Right
	var got Collector
	_, err := Run(testutil.BurstTable(200, [2]int{50, 65}), testutil.Profile(), cfg, &got)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)

	pos := got.Events[0].Trajectory[0].Pos
	assert.InDelta(t, 5.0, pos.X, 1e-9)  // (620-600)/4
	assert.InDelta(t, -2.5, pos.Y, 1e-9) // (220-240)/8
	assert.InDelta(t, 25.0, pos.Z, 1e-9) // (1000-950)/2
	assert.Equal(t, l4trajectory.Right, got.Events[0].Hand)
}

func TestRunEmptyTable(t *testing.T) {
	t.Parallel()
	var got Collector
	res, err := Run(&l1landmarks.Table{}, testutil.Profile(), DefaultConfig(), &got)
	require.NoError(t, err)
	assert.Zero(t, res.Events)
	assert.Nil(t, res.Truncated)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	table := testutil.BurstTable(200, [2]int{50, 65})

	t.Run("invalid profile", func(t *testing.T) {
		p := testutil.Profile()
		p.Center.PxPerMMX = 0
		_, err := Run(table, p, DefaultConfig(), &Collector{})
		assert.ErrorIs(t, err, calibration.ErrCalibrationMalformed)
	})

	t.Run("invalid params", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Segment.MinFramesEventStart = 0
		_, err := Run(table, testutil.Profile(), cfg, &Collector{})
		assert.Error(t, err)
	})

	t.Run("sink failure", func(t *testing.T) {
		boom := errors.New("disk full")
		_, err := Run(table, testutil.Profile(), DefaultConfig(), SinkFunc(func(*reach.Event) error { return boom }))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nil inputs", func(t *testing.T) {
		_, err := Run(nil, testutil.Profile(), DefaultConfig(), &Collector{})
		assert.Error(t, err)
		_, err = Run(table, testutil.Profile(), DefaultConfig(), nil)
		assert.Error(t, err)
	})
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	var a, b Collector
	var order []string
	m := MultiSink{
		&a,
		nil,
		SinkFunc(func(*reach.Event) error { order = append(order, "func"); return nil }),
		&b,
	}
	ev := &reach.Event{ID: "x"}
	require.NoError(t, m.WriteEvent(ev))
	assert.Equal(t, []*reach.Event{ev}, a.Events)
	assert.Equal(t, []*reach.Event{ev}, b.Events)
	assert.Equal(t, []string{"func"}, order)

	boom := errors.New("boom")
	var c Collector
	err := MultiSink{SinkFunc(func(*reach.Event) error { return boom }), &c}.WriteEvent(ev)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, c.Events)

	assert.Error(t, (&Collector{}).WriteEvent(nil))
}
