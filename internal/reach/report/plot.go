// Package report renders extracted reach events as PNG projection plots
// and an HTML page of interactive charts.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/homecage/reachscope/internal/reach"
)

var axisColors = [3]color.Color{
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
}

var axisNames = [3]string{"x", "y", "z"}

// PlotFileName is the PNG name used for an event by PlotEvents.
func PlotFileName(ev *reach.Event) string {
	return fmt.Sprintf("reach_%03d_%d-%d.png", ev.Index, ev.Span.Start, ev.Span.Stop)
}

// EventPlot builds a plot of the x, y and z position against frame.
func EventPlot(ev *reach.Event) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Reach %d, frames %d-%d (%s)", ev.Index, ev.Span.Start, ev.Span.Stop, ev.Label)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Position (mm)"
	p.X.Min = float64(ev.Span.Start)
	p.X.Max = float64(ev.Span.Stop)
	p.Add(plotter.NewGrid())

	if ev.Empty() {
		return p, nil
	}

	series := [3]plotter.XYs{}
	for i := range series {
		series[i] = make(plotter.XYs, len(ev.Trajectory))
	}
	for i, pt := range ev.Trajectory {
		f := float64(pt.Frame)
		series[0][i] = plotter.XY{X: f, Y: pt.Pos.X}
		series[1][i] = plotter.XY{X: f, Y: pt.Pos.Y}
		series[2][i] = plotter.XY{X: f, Y: pt.Pos.Z}
	}
	for i, xys := range series {
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", axisNames[i], err)
		}
		line.Color = axisColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(axisNames[i], line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// PlotEvents writes one PNG per event into dir and returns the number of
// files written.
func PlotEvents(dir string, events []*reach.Event) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create plot dir: %w", err)
	}
	n := 0
	for _, ev := range events {
		p, err := EventPlot(ev)
		if err != nil {
			return n, fmt.Errorf("reach %d: %w", ev.Index, err)
		}
		path := filepath.Join(dir, PlotFileName(ev))
		if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
			return n, fmt.Errorf("save %s: %w", path, err)
		}
		n++
	}
	return n, nil
}
