package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/homecage/reachscope/internal/reach"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l5coords"
)

// ErrMalformedRecord is wrapped by every ParseError.
var ErrMalformedRecord = errors.New("malformed reach record")

// ParseError locates a problem in a record file. Line is 1-based.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("reach record line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrMalformedRecord }

type readState int

const (
	wantStart readState = iota
	wantStop
	wantLabel
	inRows
)

// Read parses every event block from r.
//
// The record does not store frame numbers per point, so the i-th point of
// an event is assigned frame Start+i. Hand is not stored either and is
// left at its zero value. Metrics are not computed.
func Read(r io.Reader) ([]*reach.Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		out   []*reach.Event
		cur   *reach.Event
		state = wantStart
		line  int
	)
	finish := func() {
		cur.Index = len(out)
		out = append(out, cur)
		cur = nil
		state = wantStart
	}

	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(text)

		switch state {
		case wantStart:
			if trimmed == "" {
				continue
			}
			v, err := strconv.Atoi(trimmed)
			if err != nil {
				return nil, &ParseError{Line: line, Msg: fmt.Sprintf("want start frame, got %q", trimmed)}
			}
			cur = &reach.Event{Span: l3events.Span{Start: v}}
			state = wantStop

		case wantStop:
			v, err := strconv.Atoi(trimmed)
			if err != nil {
				return nil, &ParseError{Line: line, Msg: fmt.Sprintf("want stop frame, got %q", trimmed)}
			}
			if v < cur.Span.Start {
				return nil, &ParseError{Line: line, Msg: fmt.Sprintf("stop frame %d before start %d", v, cur.Span.Start)}
			}
			cur.Span.Stop = v
			state = wantLabel

		case wantLabel:
			if strings.Contains(trimmed, ",") {
				return nil, &ParseError{Line: line, Msg: "want label, got data row"}
			}
			cur.Label = trimmed
			state = inRows

		case inRows:
			if trimmed == "" {
				finish()
				continue
			}
			p, raw, err := parseRow(trimmed)
			if err != nil {
				return nil, &ParseError{Line: line, Msg: err.Error()}
			}
			p.Frame = cur.Span.Start + len(cur.Trajectory)
			cur.Trajectory = append(cur.Trajectory, p)
			cur.RawColumns = append(cur.RawColumns, raw)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	switch state {
	case inRows:
		finish()
	case wantStop, wantLabel:
		return nil, &ParseError{Line: line, Msg: "unexpected end of record"}
	}
	return out, nil
}

func parseRow(s string) (l5coords.Point, []float64, error) {
	fields := strings.Split(s, ",")
	if len(fields) < 3 {
		return l5coords.Point{}, nil, fmt.Errorf("want at least 3 columns, got %d", len(fields))
	}
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return l5coords.Point{}, nil, fmt.Errorf("column %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return l5coords.Point{Pos: r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]}}, vals[3:], nil
}

// Load reads a record file.
func Load(path string) ([]*reach.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}
	defer f.Close()
	return Read(f)
}
