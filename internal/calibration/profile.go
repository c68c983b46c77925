// Package calibration holds the pixel to millimetre calibration of the
// three camera views (left mirror, center, right mirror) and its on-disk
// text format.
package calibration

import (
	"errors"
	"fmt"

	"github.com/homecage/reachscope/internal/reach/l2zones"
)

var (
	// ErrCalibrationMissing is returned when the calibration file does not exist.
	ErrCalibrationMissing = errors.New("calibration file missing")
	// ErrCalibrationMalformed is returned when the calibration file cannot be parsed
	// or holds values that cannot be used for reconstruction.
	ErrCalibrationMalformed = errors.New("calibration file malformed")
)

// FieldError identifies the profile field that failed to load or validate.
type FieldError struct {
	Field string
	Line  int // one-based line in the calibration file, 0 when not from a file
	Err   error
}

func (e *FieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("calibration field %s (line %d): %v", e.Field, e.Line, e.Err)
	}
	return fmt.Sprintf("calibration field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() []error { return []error{ErrCalibrationMalformed, e.Err} }

// Mirror is the calibration of one mirror view. The mirror shows the paw
// from the side: pixel y maps to real-world y and pixel x to real-world z.
type Mirror struct {
	ObjectWidthMM  float64 `json:"object_width_mm"`
	ObjectHeightMM float64 `json:"object_height_mm"`
	PxPerMMY       float64 `json:"px_per_mm_y"`
	PxPerMMZ       float64 `json:"px_per_mm_z"`
	OriginY        float64 `json:"origin_y"`
	OriginZ        float64 `json:"origin_z"`
}

// Center is the calibration of the direct (center) view, which supplies
// real-world x.
type Center struct {
	ObjectWidthMM  float64 `json:"object_width_mm"`
	ObjectHeightMM float64 `json:"object_height_mm"`
	PxPerMMX       float64 `json:"px_per_mm_x"`
	PxPerMMY       float64 `json:"px_per_mm_y"`
	OriginX        float64 `json:"origin_x"`
	OriginY        float64 `json:"origin_y"`
}

// Profile is the full rig calibration. It is loaded once per run and
// passed by value; nothing mutates it after Validate succeeds.
type Profile struct {
	LeftBoundaryX  float64 `json:"left_boundary_x"`
	RightBoundaryX float64 `json:"right_boundary_x"`
	LeftMirror     Mirror  `json:"left_mirror"`
	Center         Center  `json:"center"`
	RightMirror    Mirror  `json:"right_mirror"`
}

// Bounds returns the zone boundaries used by the zone filter.
func (p Profile) Bounds() l2zones.Bounds {
	return l2zones.Bounds{LeftX: p.LeftBoundaryX, RightX: p.RightBoundaryX}
}

// Validate checks the boundary ordering and that every scale factor is
// strictly positive.
func (p Profile) Validate() error {
	if err := p.Bounds().Validate(); err != nil {
		return &FieldError{Field: "right_boundary_x", Err: err}
	}
	ratios := []struct {
		name string
		v    float64
	}{
		{"px_per_mm_y_left_mirror", p.LeftMirror.PxPerMMY},
		{"px_per_mm_z_left_mirror", p.LeftMirror.PxPerMMZ},
		{"px_per_mm_x_center", p.Center.PxPerMMX},
		{"px_per_mm_y_center", p.Center.PxPerMMY},
		{"px_per_mm_y_right_mirror", p.RightMirror.PxPerMMY},
		{"px_per_mm_z_right_mirror", p.RightMirror.PxPerMMZ},
	}
	for _, r := range ratios {
		if !(r.v > 0) {
			return &FieldError{Field: r.name, Err: fmt.Errorf("ratio must be > 0, got %g", r.v)}
		}
	}
	return nil
}
