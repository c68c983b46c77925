package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecage/reachscope/internal/reach"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l5coords"
	"github.com/homecage/reachscope/internal/reach/l6metrics"
)

func events() []*reach.Event {
	traj := make(l5coords.Trajectory, 0, 40)
	for i := 0; i < 40; i++ {
		f := float64(i)
		traj = append(traj, l5coords.Point{Frame: 50 + i, Pos: r3.Vector{X: 10 - f/4, Y: f / 10, Z: 5 - f/8}})
	}
	full := &reach.Event{
		Index:      0,
		Span:       l3events.Span{Start: 30, Stop: 165},
		Label:      reach.UnscoredLabel,
		Trajectory: traj,
		Metrics:    l6metrics.Compute(traj, l6metrics.DefaultFrameRateHz),
	}
	empty := &reach.Event{Index: 1, Span: l3events.Span{Start: 300, Stop: 380}, Label: reach.UnscoredLabel}
	return []*reach.Event{full, empty}
}

func TestPlotEvents(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "plots")
	evs := events()
	n, err := PlotEvents(dir, evs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, ev := range evs {
		data, err := os.ReadFile(filepath.Join(dir, PlotFileName(ev)))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "%s is not a PNG", PlotFileName(ev))
	}
}

func TestPlotFileName(t *testing.T) {
	assert.Equal(t, "reach_007_30-165.png", PlotFileName(&reach.Event{Index: 7, Span: l3events.Span{Start: 30, Stop: 165}}))
}

func TestEventPlotRange(t *testing.T) {
	t.Parallel()
	p, err := EventPlot(events()[0])
	require.NoError(t, err)
	assert.Equal(t, 30.0, p.X.Min)
	assert.Equal(t, 165.0, p.X.Max)
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, events(), PageOptions{Title: "mouse 12 session 3"}))
	html := buf.String()
	assert.Contains(t, html, "mouse 12 session 3")
	assert.Contains(t, html, "Peak paw speed")
	assert.Contains(t, html, "Paw path, top-down")
	assert.Contains(t, html, "Reach 0")
	// Events without trajectory get no line chart.
	assert.NotContains(t, html, "Reach 1")
}
