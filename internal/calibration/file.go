package calibration

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPath is where the rig keeps its reconstruction calibration.
const DefaultPath = "config/3D_reconstruction_calibration.txt"

// field binds one line of the calibration file to a Profile field.
type field struct {
	name string
	ptr  func(p *Profile) *float64
}

// fileLayout is the line order of the calibration file. Other stages of
// the analysis parse it positionally, so the order must never change.
var fileLayout = []field{
	{"left_boundary_x", func(p *Profile) *float64 { return &p.LeftBoundaryX }},
	{"right_boundary_x", func(p *Profile) *float64 { return &p.RightBoundaryX }},
	{"left_mirror_object_width_mm", func(p *Profile) *float64 { return &p.LeftMirror.ObjectWidthMM }},
	{"center_object_width_mm", func(p *Profile) *float64 { return &p.Center.ObjectWidthMM }},
	{"right_mirror_object_width_mm", func(p *Profile) *float64 { return &p.RightMirror.ObjectWidthMM }},
	{"left_mirror_object_height_mm", func(p *Profile) *float64 { return &p.LeftMirror.ObjectHeightMM }},
	{"center_object_height_mm", func(p *Profile) *float64 { return &p.Center.ObjectHeightMM }},
	{"right_mirror_object_height_mm", func(p *Profile) *float64 { return &p.RightMirror.ObjectHeightMM }},
	{"px_per_mm_y_left_mirror", func(p *Profile) *float64 { return &p.LeftMirror.PxPerMMY }},
	{"px_per_mm_z_left_mirror", func(p *Profile) *float64 { return &p.LeftMirror.PxPerMMZ }},
	{"px_per_mm_x_center", func(p *Profile) *float64 { return &p.Center.PxPerMMX }},
	{"px_per_mm_y_center", func(p *Profile) *float64 { return &p.Center.PxPerMMY }},
	{"px_per_mm_y_right_mirror", func(p *Profile) *float64 { return &p.RightMirror.PxPerMMY }},
	{"px_per_mm_z_right_mirror", func(p *Profile) *float64 { return &p.RightMirror.PxPerMMZ }},
	{"origin_y_left_mirror", func(p *Profile) *float64 { return &p.LeftMirror.OriginY }},
	{"origin_z_left_mirror", func(p *Profile) *float64 { return &p.LeftMirror.OriginZ }},
	{"origin_x_center", func(p *Profile) *float64 { return &p.Center.OriginX }},
	{"origin_y_center", func(p *Profile) *float64 { return &p.Center.OriginY }},
	{"origin_y_right_mirror", func(p *Profile) *float64 { return &p.RightMirror.OriginY }},
	{"origin_z_right_mirror", func(p *Profile) *float64 { return &p.RightMirror.OriginZ }},
}

// FieldCount is the number of lines in a calibration file.
var FieldCount = len(fileLayout)

// Read parses a calibration file positionally and validates the result.
// Lines beyond FieldCount are ignored.
func Read(r io.Reader) (Profile, error) {
	var p Profile
	sc := bufio.NewScanner(r)
	line := 0
	for _, f := range fileLayout {
		line++
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return Profile{}, fmt.Errorf("failed to read calibration: %w", err)
			}
			return Profile{}, &FieldError{Field: f.name, Line: line, Err: io.ErrUnexpectedEOF}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(sc.Text()), 64)
		if err != nil {
			return Profile{}, &FieldError{Field: f.name, Line: line, Err: err}
		}
		*f.ptr(&p) = v
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Write serialises the profile in file order, one value per line. Whole
// numbers are written without a fractional part, which keeps boundary and
// origin lines readable by integer parsers.
func Write(w io.Writer, p Profile) error {
	bw := bufio.NewWriter(w)
	for _, f := range fileLayout {
		v := *f.ptr(&p)
		if _, err := bw.WriteString(strconv.FormatFloat(v, 'f', -1, 64) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load reads and validates the calibration file at path.
func Load(path string) (Profile, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Profile{}, fmt.Errorf("%w: %s", ErrCalibrationMissing, path)
		}
		return Profile{}, fmt.Errorf("failed to open calibration file: %w", err)
	}
	defer f.Close()

	p, err := Read(f)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Save validates the profile and writes it to path, replacing any
// existing file.
func Save(path string, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create calibration dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create calibration file: %w", err)
	}
	if err := Write(f, p); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write calibration file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close calibration file: %w", err)
	}
	return os.Rename(tmp, path)
}
