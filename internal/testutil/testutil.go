// Package testutil provides shared reach fixtures: a rig calibration, a
// synthetic tracker table with paw bursts, and its DeepLabCut CSV form.
package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/homecage/reachscope/internal/calibration"
	"github.com/homecage/reachscope/internal/reach/l1landmarks"
)

// Profile returns a valid calibration with round numbers. A BurstTable
// paw maps to (5, 2, 10) mm for the left hand at the burst's first frame.
func Profile() calibration.Profile {
	return calibration.Profile{
		LeftBoundaryX:  300,
		RightBoundaryX: 900,
		LeftMirror:     calibration.Mirror{PxPerMMY: 10, PxPerMMZ: 5, OriginY: 200, OriginZ: 150},
		Center:         calibration.Center{PxPerMMX: 4, PxPerMMY: 4, OriginX: 600, OriginY: 300},
		RightMirror:    calibration.Mirror{PxPerMMY: 8, PxPerMMZ: 2, OriginY: 220, OriginZ: 1000},
	}
}

// BurstTable builds n frames where every paw slot is tracked with high
// confidence inside the given inclusive frame ranges and untracked
// elsewhere. The left mirror paw moves one pixel per frame.
func BurstTable(n int, bursts ...[2]int) *l1landmarks.Table {
	t := &l1landmarks.Table{Frames: make([]l1landmarks.Frame, n)}
	for _, b := range bursts {
		for f := b[0]; f <= b[1]; f++ {
			step := float64(f - b[0])
			frame := &t.Frames[f]
			for _, s := range l1landmarks.SlotsIn(l1landmarks.GroupLeftMirrorPaw) {
				frame[s] = l1landmarks.Reading{X: 100 + step, Y: 180, Confidence: 0.9}
			}
			for _, s := range l1landmarks.SlotsIn(l1landmarks.GroupCenterPaw) {
				frame[s] = l1landmarks.Reading{X: 620, Y: 300, Confidence: 0.9}
			}
			for _, s := range l1landmarks.SlotsIn(l1landmarks.GroupRightMirrorPaw) {
				frame[s] = l1landmarks.Reading{X: 950, Y: 240, Confidence: 0.9}
			}
		}
	}
	return t
}

// LandmarkCSV renders table as a DeepLabCut export with its three header
// rows and a leading frame index column.
func LandmarkCSV(table *l1landmarks.Table) string {
	var b strings.Builder
	b.WriteString("scorer,DLC_resnet50\nbodyparts,paw1,paw1,paw1\ncoords,x,y,likelihood\n")
	for i := range table.Frames {
		b.WriteString(strconv.Itoa(i))
		for _, v := range table.Frames[i].Columns(l1landmarks.SlotCount * l1landmarks.ValuesPerSlot) {
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteSession writes table as name under a fresh temp dir, next to a
// calibration.txt holding Profile.
func WriteSession(t testing.TB, name string, table *l1landmarks.Table) (csvPath, calPath string) {
	t.Helper()
	dir := t.TempDir()
	csvPath = filepath.Join(dir, name)
	if err := os.WriteFile(csvPath, []byte(LandmarkCSV(table)), 0o644); err != nil {
		t.Fatalf("write landmarks: %v", err)
	}
	calPath = filepath.Join(dir, "calibration.txt")
	if err := calibration.Save(calPath, Profile()); err != nil {
		t.Fatalf("write calibration: %v", err)
	}
	return csvPath, calPath
}
