package record

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/homecage/reachscope/internal/reach"
)

var metricsHeader = []string{
	"id", "label", "start_frame", "end_frame", "reach_frame",
	"max_speed", "max_speed_index", "min_speed", "min_speed_index",
	"path_length_forward_mm", "path_length_backward_mm", "points",
}

// WriteMetrics writes one CSV row of per-event metrics for each event.
// Events whose metrics are not valid get empty metric cells.
func WriteMetrics(w io.Writer, events []*reach.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(metricsHeader); err != nil {
		return err
	}
	for _, ev := range events {
		m := ev.Metrics
		row := []string{
			strconv.Itoa(ev.Index),
			ev.Label,
			strconv.Itoa(ev.Span.Start),
			strconv.Itoa(ev.Span.Stop),
			"", "", "", "", "", "", "",
			strconv.Itoa(len(ev.Trajectory)),
		}
		if m.Valid {
			row[4] = strconv.Itoa(m.ReachFrame)
			row[5] = formatFloat(m.MaxSpeed)
			row[6] = strconv.Itoa(m.MaxSpeedIndex)
			row[7] = formatFloat(m.MinSpeed)
			row[8] = strconv.Itoa(m.MinSpeedIndex)
			row[9] = formatFloat(m.PathForward)
			row[10] = formatFloat(m.PathBackward)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
