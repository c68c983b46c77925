package l1landmarks

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMalformedLandmarkRow is returned when a tracker row does not carry
// exactly SlotCount slots.
var ErrMalformedLandmarkRow = errors.New("malformed landmark row")

// MalformedRowError locates a malformed row in the input.
type MalformedRowError struct {
	Row     int // zero-based data row (frame index)
	Line    int // one-based line in the source file
	Columns int
	Reason  string
}

func (e *MalformedRowError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("landmark row %d (line %d): %s", e.Row, e.Line, e.Reason)
	}
	return fmt.Sprintf("landmark row %d (line %d): got %d value columns, want %d",
		e.Row, e.Line, e.Columns, SlotCount*ValuesPerSlot)
}

func (e *MalformedRowError) Unwrap() error { return ErrMalformedLandmarkRow }

// headerTags are the first-column labels of the DeepLabCut CSV header rows.
var headerTags = map[string]bool{
	"scorer":    true,
	"bodyparts": true,
	"coords":    true,
	"":          true,
}

// ReadCSV parses a DeepLabCut CSV export. Header rows (scorer, bodyparts,
// coords) before the first data row are skipped. Each data row is either
// SlotCount*3 values or a leading frame-index column followed by
// SlotCount*3 values. Any other shape aborts the read.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	want := SlotCount * ValuesPerSlot
	table := &Table{}
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read landmark CSV at line %d: %w", line, err)
		}
		if len(rec) == 0 || (len(table.Frames) == 0 && isHeader(rec[0])) {
			continue
		}

		values := rec
		switch len(rec) {
		case want + 1:
			values = rec[1:]
		case want:
		default:
			return nil, &MalformedRowError{Row: len(table.Frames), Line: line, Columns: len(rec)}
		}

		var f Frame
		for s := 0; s < SlotCount; s++ {
			base := s * ValuesPerSlot
			var vals [ValuesPerSlot]float64
			for k := 0; k < ValuesPerSlot; k++ {
				v, err := parseValue(values[base+k])
				if err != nil {
					return nil, &MalformedRowError{
						Row:    len(table.Frames),
						Line:   line,
						Reason: fmt.Sprintf("slot %d column %d: %v", s, k, err),
					}
				}
				vals[k] = v
			}
			f[s] = Reading{X: vals[0], Y: vals[1], Confidence: vals[2]}
		}
		table.Frames = append(table.Frames, f)
	}
	return table, nil
}

// LoadCSV reads a DeepLabCut CSV export from disk.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open landmark file: %w", err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func isHeader(first string) bool {
	first = strings.TrimSpace(first)
	if headerTags[strings.ToLower(first)] {
		return true
	}
	_, err := strconv.ParseFloat(first, 64)
	return err != nil
}

// parseValue reads empty cells as zero. The tracker leaves them blank for
// landmarks it never located, and zero confidence always fails filtering.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
