package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/homecage/reachscope/internal/reach"
)

// PageOptions controls HTML rendering.
type PageOptions struct {
	Title string
	// AssetsHost overrides where the echarts scripts are loaded from.
	// Empty uses the go-echarts default CDN.
	AssetsHost string
}

func (o PageOptions) init(title, height string) opts.Initialization {
	return opts.Initialization{PageTitle: o.Title, Width: "100%", Height: height, AssetsHost: o.AssetsHost, ChartID: title}
}

// Page assembles a summary bar chart, a top-down view of every trajectory
// and one line chart per event.
func Page(events []*reach.Event, o PageOptions) *components.Page {
	if o.Title == "" {
		o.Title = "Reach events"
	}
	page := components.NewPage()
	page.PageTitle = o.Title
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(speedChart(events, o), topDownChart(events, o))
	for _, ev := range events {
		if ev.Empty() {
			continue
		}
		page.AddCharts(eventChart(ev, o))
	}
	return page
}

// WriteHTML renders Page to w.
func WriteHTML(w io.Writer, events []*reach.Event, o PageOptions) error {
	return Page(events, o).Render(w)
}

func speedChart(events []*reach.Event, o PageOptions) *charts.Bar {
	x := make([]string, len(events))
	y := make([]opts.BarData, len(events))
	for i, ev := range events {
		x[i] = strconv.Itoa(ev.Index)
		y[i] = opts.BarData{Value: ev.Metrics.MaxSpeed}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("max_speed", "360px")),
		charts.WithTitleOpts(opts.Title{Title: "Peak paw speed", Subtitle: fmt.Sprintf("%d events", len(events))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Reach", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm/s"}),
	)
	bar.SetXAxis(x).AddSeries("max speed", y)
	return bar
}

// topDownChart plots x against z for every point, one series per event.
func topDownChart(events []*reach.Event, o PageOptions) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("top_down", "600px")),
		charts.WithTitleOpts(opts.Title{Title: "Paw path, top-down", Subtitle: "origin at the pellet"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Z (mm)", NameLocation: "middle", NameGap: 30}),
	)
	for _, ev := range events {
		if ev.Empty() {
			continue
		}
		data := make([]opts.ScatterData, len(ev.Trajectory))
		for i, p := range ev.Trajectory {
			data[i] = opts.ScatterData{Value: []interface{}{p.Pos.X, p.Pos.Z, p.Frame}}
		}
		scatter.AddSeries(fmt.Sprintf("reach %d", ev.Index), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}
	return scatter
}

func eventChart(ev *reach.Event, o PageOptions) *charts.Line {
	frames := make([]string, len(ev.Trajectory))
	var series [3][]opts.LineData
	for i := range series {
		series[i] = make([]opts.LineData, len(ev.Trajectory))
	}
	for i, p := range ev.Trajectory {
		frames[i] = strconv.Itoa(p.Frame)
		series[0][i] = opts.LineData{Value: p.Pos.X}
		series[1][i] = opts.LineData{Value: p.Pos.Y}
		series[2][i] = opts.LineData{Value: p.Pos.Z}
	}

	sub := fmt.Sprintf("frames %d-%d, label %s", ev.Span.Start, ev.Span.Stop, ev.Label)
	if ev.Metrics.Valid {
		sub += fmt.Sprintf(", reach frame %d, path %.1f/%.1f mm", ev.Metrics.ReachFrame, ev.Metrics.PathForward, ev.Metrics.PathBackward)
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(fmt.Sprintf("reach_%d", ev.Index), "360px")),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Reach %d", ev.Index), Subtitle: sub}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm"}),
	)
	line.SetXAxis(frames)
	for i, data := range series {
		line.AddSeries(axisNames[i], data)
	}
	return line
}
