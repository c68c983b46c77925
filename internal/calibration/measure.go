package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
)

// Segment is a pixel line drawn across a calibration object.
type Segment struct {
	A r2.Point `json:"a"`
	B r2.Point `json:"b"`
}

// Length returns the pixel length of the segment.
func (s Segment) Length() float64 {
	return s.B.Sub(s.A).Norm()
}

// ViewMeasurement is what the operator marks up in one camera view: the
// true size of the calibration object, the lines drawn across its width
// and height, and the origin point(s).
type ViewMeasurement struct {
	ObjectWidthMM  float64  `json:"object_width_mm"`
	ObjectHeightMM float64  `json:"object_height_mm"`
	Width          Segment  `json:"width"`
	Height         Segment  `json:"height"`
	Origin         r2.Point `json:"origin"`
	// SecondOrigin is marked separately for the second axis of the view.
	// When nil, Origin is used for both axes.
	SecondOrigin *r2.Point `json:"second_origin,omitempty"`
}

func (v ViewMeasurement) secondOrigin() r2.Point {
	if v.SecondOrigin != nil {
		return *v.SecondOrigin
	}
	return v.Origin
}

// Measurements is a complete markup of one calibration frame.
type Measurements struct {
	LeftBoundaryX  float64         `json:"left_boundary_x"`
	RightBoundaryX float64         `json:"right_boundary_x"`
	LeftMirror     ViewMeasurement `json:"left_mirror"`
	Center         ViewMeasurement `json:"center"`
	RightMirror    ViewMeasurement `json:"right_mirror"`
}

func ratio(name string, px, mm float64) (float64, error) {
	if !(mm > 0) {
		return 0, &FieldError{Field: name, Err: fmt.Errorf("object size must be > 0, got %g", mm)}
	}
	return px / mm, nil
}

func buildMirror(prefix string, v ViewMeasurement) (Mirror, error) {
	z, err := ratio(prefix+"_object_width_mm", v.Width.Length(), v.ObjectWidthMM)
	if err != nil {
		return Mirror{}, err
	}
	y, err := ratio(prefix+"_object_height_mm", v.Height.Length(), v.ObjectHeightMM)
	if err != nil {
		return Mirror{}, err
	}
	return Mirror{
		ObjectWidthMM:  v.ObjectWidthMM,
		ObjectHeightMM: v.ObjectHeightMM,
		PxPerMMY:       y,
		PxPerMMZ:       z,
		OriginY:        v.Origin.Y,
		OriginZ:        v.secondOrigin().X,
	}, nil
}

// Build converts a calibration markup into a validated Profile. In a
// mirror the object's width runs along z and its height along y; in the
// center view width runs along x.
func Build(m Measurements) (Profile, error) {
	left, err := buildMirror("left_mirror", m.LeftMirror)
	if err != nil {
		return Profile{}, err
	}
	right, err := buildMirror("right_mirror", m.RightMirror)
	if err != nil {
		return Profile{}, err
	}
	cx, err := ratio("center_object_width_mm", m.Center.Width.Length(), m.Center.ObjectWidthMM)
	if err != nil {
		return Profile{}, err
	}
	cy, err := ratio("center_object_height_mm", m.Center.Height.Length(), m.Center.ObjectHeightMM)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{
		LeftBoundaryX:  m.LeftBoundaryX,
		RightBoundaryX: m.RightBoundaryX,
		LeftMirror:     left,
		RightMirror:    right,
		Center: Center{
			ObjectWidthMM:  m.Center.ObjectWidthMM,
			ObjectHeightMM: m.Center.ObjectHeightMM,
			PxPerMMX:       cx,
			PxPerMMY:       cy,
			OriginX:        m.Center.Origin.X,
			OriginY:        m.Center.secondOrigin().Y,
		},
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadMeasurements reads a JSON calibration markup.
func LoadMeasurements(path string) (Measurements, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Measurements{}, fmt.Errorf("failed to read measurements: %w", err)
	}
	var m Measurements
	if err := json.Unmarshal(data, &m); err != nil {
		return Measurements{}, fmt.Errorf("failed to parse measurements JSON: %w", err)
	}
	return m, nil
}
