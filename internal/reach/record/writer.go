// Package record reads and writes the plain-text reach record consumed by
// human scorers and the metrics stage.
//
// Each event is written as its start frame, stop frame and label on three
// lines, then one comma separated row per trajectory point (x, y and z in
// millimetres followed by the raw tracker columns of that point's frame),
// then two newlines.
package record

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/homecage/reachscope/internal/reach"
)

// Writer appends events to a record stream. It implements the pipeline
// sink interface.
type Writer struct {
	w   *bufio.Writer
	buf []byte
	n   int
}

// NewWriter returns a Writer on w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Count returns the number of events written so far.
func (w *Writer) Count() int { return w.n }

// WriteEvent writes one event block.
func (w *Writer) WriteEvent(ev *reach.Event) error {
	if ev == nil {
		return fmt.Errorf("nil event")
	}
	if len(ev.RawColumns) != 0 && len(ev.RawColumns) != len(ev.Trajectory) {
		return fmt.Errorf("event %v: %d raw column rows for %d points", ev.Span, len(ev.RawColumns), len(ev.Trajectory))
	}
	label := ev.Label
	if label == "" {
		label = reach.UnscoredLabel
	}

	b := w.buf[:0]
	b = strconv.AppendInt(b, int64(ev.Span.Start), 10)
	b = append(b, '\n')
	b = strconv.AppendInt(b, int64(ev.Span.Stop), 10)
	b = append(b, '\n')
	b = append(b, label...)
	b = append(b, '\n')
	for i, p := range ev.Trajectory {
		b = appendFloat(b, p.Pos.X)
		b = append(b, ',')
		b = appendFloat(b, p.Pos.Y)
		b = append(b, ',')
		b = appendFloat(b, p.Pos.Z)
		if len(ev.RawColumns) > 0 {
			for _, v := range ev.RawColumns[i] {
				b = append(b, ',')
				b = appendFloat(b, v)
			}
		}
		b = append(b, '\n')
	}
	b = append(b, '\n', '\n')
	w.buf = b

	if _, err := w.w.Write(b); err != nil {
		return err
	}
	w.n++
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

func appendFloat(b []byte, v float64) []byte {
	return strconv.AppendFloat(b, v, 'f', -1, 64)
}

// FileWriter is a Writer that owns its file.
type FileWriter struct {
	*Writer
	f *os.File
}

// Create truncates or creates path, making parent directories as needed.
func Create(path string) (*FileWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create record dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return &FileWriter{Writer: NewWriter(f), f: f}, nil
}

// Close flushes and closes the file.
func (fw *FileWriter) Close() error {
	flushErr := fw.Flush()
	closeErr := fw.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
