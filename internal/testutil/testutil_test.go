package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecage/reachscope/internal/calibration"
	"github.com/homecage/reachscope/internal/reach/l1landmarks"
)

func TestProfileValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Profile().Validate())
}

func TestBurstTable(t *testing.T) {
	t.Parallel()

	table := BurstTable(20, [2]int{5, 7})
	require.Equal(t, 20, table.Len())
	assert.Equal(t, l1landmarks.Reading{}, table.Frames[4][l1landmarks.LeftMirrorPaw3])
	assert.Equal(t, 0.9, table.Frames[5][l1landmarks.CenterPaw0].Confidence)
	assert.Equal(t, 102.0, table.Frames[7][l1landmarks.LeftMirrorPaw3].X)
}

func TestLandmarkCSVRoundTrip(t *testing.T) {
	t.Parallel()

	table := BurstTable(12, [2]int{2, 4})
	got, err := l1landmarks.ReadCSV(strings.NewReader(LandmarkCSV(table)))
	require.NoError(t, err)
	assert.Equal(t, table.Frames, got.Frames)
}

func TestWriteSession(t *testing.T) {
	t.Parallel()

	csvPath, calPath := WriteSession(t, "s1DLC.csv", BurstTable(8, [2]int{1, 2}))
	table, err := l1landmarks.LoadCSV(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 8, table.Len())

	p, err := calibration.Load(calPath)
	require.NoError(t, err)
	assert.Equal(t, Profile(), p)
}
