package db

import (
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homecage/reachscope/internal/reach"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/homecage/reachscope/internal/reach/l5coords"
	"github.com/homecage/reachscope/internal/reach/l6metrics"
	"github.com/homecage/reachscope/internal/timeutil"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "reach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testEvent(index, start int) *reach.Event {
	traj := l5coords.Trajectory{
		{Frame: start + 20, Pos: r3.Vector{X: 6, Y: 1, Z: 8}},
		{Frame: start + 21, Pos: r3.Vector{X: 3, Y: 0.5, Z: 4}},
		{Frame: start + 22, Pos: r3.Vector{X: 4, Y: 0.5, Z: 5}},
	}
	return &reach.Event{
		Index:      index,
		Span:       l3events.Span{Start: start, Stop: start + 100},
		Hand:       l4trajectory.Right,
		Label:      reach.UnscoredLabel,
		Trajectory: traj,
		RawColumns: [][]float64{{1, 2, 0.9}, {3, 4, 0.8}, {5, 6, 0.7}},
		Metrics:    l6metrics.Compute(traj, 40),
	}
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrations(t *testing.T) {
	db := newTestDB(t)
	migrations, err := getMigrationsFS()
	require.NoError(t, err)

	latest, err := LatestMigrationVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	version, dirty, err := db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateDown(migrations))
	version, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'reach_trajectory_points'`).Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, db.MigrateUp(migrations))
	version, _, err = db.MigrateVersion(migrations)
	require.NoError(t, err)
	assert.Equal(t, latest, version)

	entries, err := fs.ReadDir(migrations, ".")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestRunLifecycle(t *testing.T) {
	db := newTestDB(t)

	run := &Run{Source: "mouse12_session3DLC.csv", Hand: l4trajectory.Right, ParamsJSON: []byte(`{"workers":2}`)}
	require.NoError(t, db.CreateRun(run))
	require.NotEmpty(t, run.RunID)
	assert.NotZero(t, run.CreatedAt)

	require.NoError(t, db.CompleteRun(run.RunID, 2000, 3, &l3events.Span{Start: 1900, Stop: 1999}))

	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "mouse12_session3DLC.csv", got.Source)
	assert.Equal(t, l4trajectory.Right, got.Hand)
	assert.JSONEq(t, `{"workers":2}`, string(got.ParamsJSON))
	assert.Equal(t, 2000, got.Frames)
	assert.Equal(t, 3, got.EventCount)
	assert.Equal(t, &l3events.Span{Start: 1900, Stop: 1999}, got.Truncated)
	assert.NotZero(t, got.CompletedAt)

	runs, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	_, err = db.GetRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.CompleteRun("missing", 0, 0, nil), ErrNotFound)
}

func TestEventSinkRoundTrip(t *testing.T) {
	db := newTestDB(t)
	run := &Run{Source: "a.csv", Hand: l4trajectory.Right}
	require.NoError(t, db.CreateRun(run))

	sink := db.EventSink(run.RunID)
	second := testEvent(1, 500)
	first := testEvent(0, 30)
	empty := &reach.Event{Index: 2, Span: l3events.Span{Start: 900, Stop: 980}, Hand: l4trajectory.Right}
	require.NoError(t, sink.WriteEvent(second))
	require.NoError(t, sink.WriteEvent(first))
	require.NoError(t, sink.WriteEvent(empty))
	require.NotEmpty(t, empty.ID)

	events, err := db.Events(run.RunID, true)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Ordered by start frame regardless of insertion order.
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)

	got := events[0]
	assert.Equal(t, first.Span, got.Span)
	assert.Equal(t, l4trajectory.Right, got.Hand)
	assert.Equal(t, reach.UnscoredLabel, got.Label)
	if diff := cmp.Diff(first.Trajectory, got.Trajectory); diff != "" {
		t.Errorf("trajectory mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, first.RawColumns, got.RawColumns)
	if diff := cmp.Diff(first.Metrics, got.Metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, reach.UnscoredLabel, events[2].Label)
	assert.True(t, events[2].Empty())
	assert.Nil(t, events[2].RawColumns)

	light, err := db.Events(run.RunID, false)
	require.NoError(t, err)
	assert.Nil(t, light[0].Trajectory)
	assert.True(t, light[0].Metrics.Valid)
}

func TestUpdateLabel(t *testing.T) {
	db := newTestDB(t)
	run := &Run{Source: "a.csv"}
	require.NoError(t, db.CreateRun(run))
	ev := testEvent(0, 30)
	require.NoError(t, db.InsertEvent(run.RunID, ev))

	require.NoError(t, db.UpdateLabel(ev.ID, " 2 "))
	got, err := db.GetEvent(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.Label)
	assert.True(t, got.Scored())
	assert.Len(t, got.Trajectory, 3)

	var labelledAt *int64
	require.NoError(t, db.QueryRow(`SELECT labelled_at FROM reach_events WHERE event_id = ?`, ev.ID).Scan(&labelledAt))
	assert.NotNil(t, labelledAt)

	assert.ErrorIs(t, db.UpdateLabel("missing", "1"), ErrNotFound)
	assert.ErrorIs(t, db.UpdateLabel(ev.ID, ""), ErrInvalidLabel)
	assert.ErrorIs(t, db.UpdateLabel(ev.ID, "a,b"), ErrInvalidLabel)

	_, err = db.GetEvent("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertEventRequiresRun(t *testing.T) {
	db := newTestDB(t)
	err := db.InsertEvent("no-such-run", testEvent(0, 0))
	assert.Error(t, err)

	ev := testEvent(0, 0)
	ev.RawColumns = ev.RawColumns[:1]
	assert.Error(t, db.InsertEvent("no-such-run", ev))
	assert.Error(t, db.InsertEvent("no-such-run", nil))
}

func TestDeleteRun(t *testing.T) {
	db := newTestDB(t)
	run := &Run{Source: "a.csv"}
	require.NoError(t, db.CreateRun(run))
	require.NoError(t, db.InsertEvent(run.RunID, testEvent(0, 30)))

	require.NoError(t, db.DeleteRun(run.RunID))
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM reach_trajectory_points`).Scan(&n))
	assert.Zero(t, n)
	assert.ErrorIs(t, db.DeleteRun(run.RunID), ErrNotFound)
}

func TestRetryOnBusy(t *testing.T) {
	db := newTestDB(t)
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	db.SetClock(clock)

	calls := 0
	err := db.retryOnBusy(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{20 * time.Millisecond, 40 * time.Millisecond}, clock.Sleeps())

	calls = 0
	err = db.retryOnBusy(func() error {
		calls++
		return errors.New("SQLITE_LOCKED")
	})
	assert.Error(t, err)
	assert.Equal(t, busyRetries+1, calls)

	boom := errors.New("constraint failed")
	calls = 0
	assert.ErrorIs(t, db.retryOnBusy(func() error { calls++; return boom }), boom)
	assert.Equal(t, 1, calls)
}

func TestTimestampsUseClock(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	db.SetClock(clock)

	run := &Run{Source: "a.csv"}
	require.NoError(t, db.CreateRun(run))
	assert.Equal(t, start.UnixNano(), run.CreatedAt)

	clock.Advance(90 * time.Second)
	require.NoError(t, db.CompleteRun(run.RunID, 10, 0, nil))
	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, start.Add(90*time.Second).UnixNano(), got.CompletedAt)
	assert.Nil(t, got.Truncated)
}

func TestBackup(t *testing.T) {
	db := newTestDB(t)
	run := &Run{Source: "a.csv"}
	require.NoError(t, db.CreateRun(run))

	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	rec := httptest.NewRecorder()
	db.handleBackup(rec, httptest.NewRequest(http.MethodGet, "/debug/backup", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	restored := filepath.Join(t.TempDir(), "restored.db")
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(restored, data, 0o644))

	copyDB, err := OpenDB(restored)
	require.NoError(t, err)
	defer copyDB.Close()
	got, err := copyDB.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "a.csv", got.Source)
}
