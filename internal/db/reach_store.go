package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/homecage/reachscope/internal/reach"
	"github.com/homecage/reachscope/internal/reach/l3events"
	"github.com/homecage/reachscope/internal/reach/l4trajectory"
	"github.com/homecage/reachscope/internal/reach/l5coords"
	"github.com/homecage/reachscope/internal/reach/l6metrics"
)

var (
	// ErrNotFound is returned when a run or event ID does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidLabel rejects labels that would break the reach record format.
	ErrInvalidLabel = errors.New("invalid label")
)

// Run is one extraction over one tracker file.
type Run struct {
	RunID       string            `json:"run_id"`
	Source      string            `json:"source"`
	Hand        l4trajectory.Hand `json:"hand"`
	ParamsJSON  json.RawMessage   `json:"params_json,omitempty"`
	Frames      int               `json:"frames"`
	EventCount  int               `json:"event_count"`
	Truncated   *l3events.Span    `json:"truncated,omitempty"`
	CreatedAt   int64             `json:"created_at"`
	CompletedAt int64             `json:"completed_at,omitempty"`
}

// CreateRun inserts a run. If RunID is empty, a UUID is generated.
func (db *DB) CreateRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = db.now()
	}
	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}
	return db.retryOnBusy(func() error {
		_, err := db.Exec(`
			INSERT INTO reach_runs (run_id, source, hand, params_json, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			run.RunID, run.Source, run.Hand.String(), params, run.CreatedAt,
		)
		return err
	})
}

// CompleteRun records the outcome of a run.
func (db *DB) CompleteRun(runID string, frames, events int, truncated *l3events.Span) error {
	var tStart, tStop interface{}
	if truncated != nil {
		tStart, tStop = truncated.Start, truncated.Stop
	}
	var n int64
	err := db.retryOnBusy(func() error {
		res, err := db.Exec(`
			UPDATE reach_runs
			SET frames = ?, event_count = ?, truncated_start = ?, truncated_stop = ?, completed_at = ?
			WHERE run_id = ?`,
			frames, events, tStart, tStop, db.now(), runID,
		)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `run_id, source, hand, params_json, frames, event_count,
	truncated_start, truncated_stop, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		r           Run
		hand        string
		params      sql.NullString
		tStart      sql.NullInt64
		tStop       sql.NullInt64
		completedAt sql.NullInt64
	)
	if err := s.Scan(&r.RunID, &r.Source, &hand, &params, &r.Frames, &r.EventCount,
		&tStart, &tStop, &r.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	h, err := l4trajectory.ParseHand(hand)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", r.RunID, err)
	}
	r.Hand = h
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	if tStart.Valid && tStop.Valid {
		r.Truncated = &l3events.Span{Start: int(tStart.Int64), Stop: int(tStop.Int64)}
	}
	r.CompletedAt = completedAt.Int64
	return &r, nil
}

// GetRun returns a run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM reach_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return r, err
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM reach_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertEvent stores an event and its trajectory in one transaction. If
// ev.ID is empty, a UUID is generated and written back.
func (db *DB) InsertEvent(runID string, ev *reach.Event) error {
	if ev == nil {
		return errors.New("nil event")
	}
	if len(ev.RawColumns) != 0 && len(ev.RawColumns) != len(ev.Trajectory) {
		return fmt.Errorf("event %v: %d raw column rows for %d points", ev.Span, len(ev.RawColumns), len(ev.Trajectory))
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	label := ev.Label
	if label == "" {
		label = reach.UnscoredLabel
	}
	metricsJSON, err := json.Marshal(ev.Metrics)
	if err != nil {
		return err
	}
	var maxSpeed, minSpeed, reachFrame, fwd, bwd interface{}
	if m := ev.Metrics; m.Valid {
		maxSpeed, minSpeed, reachFrame, fwd, bwd = m.MaxSpeed, m.MinSpeed, m.ReachFrame, m.PathForward, m.PathBackward
	}

	return db.retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO reach_events (
				event_id, run_id, event_index, start_frame, stop_frame, hand, label,
				point_count, max_speed, min_speed, reach_frame, path_forward_mm,
				path_backward_mm, metrics_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, runID, ev.Index, ev.Span.Start, ev.Span.Stop, ev.Hand.String(), label,
			len(ev.Trajectory), maxSpeed, minSpeed, reachFrame, fwd, bwd, string(metricsJSON),
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO reach_trajectory_points (event_id, seq, frame, x_mm, y_mm, z_mm, raw_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, p := range ev.Trajectory {
			var raw interface{}
			if len(ev.RawColumns) > 0 {
				b, err := json.Marshal(ev.RawColumns[i])
				if err != nil {
					return err
				}
				raw = string(b)
			}
			if _, err := stmt.Exec(ev.ID, i, p.Frame, p.Pos.X, p.Pos.Y, p.Pos.Z, raw); err != nil {
				return fmt.Errorf("insert point %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// EventSink adapts the store to the pipeline sink for one run.
type EventSink struct {
	db    *DB
	runID string
}

// EventSink returns a sink writing events under runID.
func (db *DB) EventSink(runID string) *EventSink {
	return &EventSink{db: db, runID: runID}
}

// WriteEvent implements the pipeline sink.
func (s *EventSink) WriteEvent(ev *reach.Event) error {
	return s.db.InsertEvent(s.runID, ev)
}

const eventColumns = `event_id, event_index, start_frame, stop_frame, hand, label, metrics_json`

func scanEvent(s rowScanner) (*reach.Event, error) {
	var (
		ev          reach.Event
		hand        string
		metricsJSON sql.NullString
	)
	if err := s.Scan(&ev.ID, &ev.Index, &ev.Span.Start, &ev.Span.Stop, &hand, &ev.Label, &metricsJSON); err != nil {
		return nil, err
	}
	h, err := l4trajectory.ParseHand(hand)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	ev.Hand = h
	if metricsJSON.Valid && metricsJSON.String != "" {
		var m l6metrics.Metrics
		if err := json.Unmarshal([]byte(metricsJSON.String), &m); err != nil {
			return nil, fmt.Errorf("event %s metrics: %w", ev.ID, err)
		}
		ev.Metrics = m
	}
	return &ev, nil
}

// Events returns the events of a run in start-frame order. Trajectories
// are loaded only when withTrajectory is set.
func (db *DB) Events(runID string, withTrajectory bool) ([]*reach.Event, error) {
	rows, err := db.Query(`SELECT `+eventColumns+` FROM reach_events WHERE run_id = ? ORDER BY start_frame, event_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	var events []*reach.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		events = append(events, ev)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Trajectories are read after rows is closed; the pool holds a single
	// connection.
	if withTrajectory {
		for _, ev := range events {
			if err := db.LoadTrajectory(ev); err != nil {
				return nil, err
			}
		}
	}
	return events, nil
}

// GetEvent returns one event with its trajectory.
func (db *DB) GetEvent(eventID string) (*reach.Event, error) {
	ev, err := scanEvent(db.QueryRow(`SELECT `+eventColumns+` FROM reach_events WHERE event_id = ?`, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := db.LoadTrajectory(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// LoadTrajectory fills ev.Trajectory and ev.RawColumns from the store.
func (db *DB) LoadTrajectory(ev *reach.Event) error {
	rows, err := db.Query(`
		SELECT frame, x_mm, y_mm, z_mm, raw_json
		FROM reach_trajectory_points
		WHERE event_id = ?
		ORDER BY seq`, ev.ID)
	if err != nil {
		return fmt.Errorf("query trajectory: %w", err)
	}
	defer rows.Close()

	traj := l5coords.Trajectory{}
	var cols [][]float64
	for rows.Next() {
		var (
			p   l5coords.Point
			raw sql.NullString
		)
		if err := rows.Scan(&p.Frame, &p.Pos.X, &p.Pos.Y, &p.Pos.Z, &raw); err != nil {
			return err
		}
		traj = append(traj, p)
		if raw.Valid {
			var v []float64
			if err := json.Unmarshal([]byte(raw.String), &v); err != nil {
				return fmt.Errorf("event %s raw columns: %w", ev.ID, err)
			}
			cols = append(cols, v)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	ev.Trajectory = traj
	if len(cols) == len(traj) && len(cols) > 0 {
		ev.RawColumns = cols
	} else {
		ev.RawColumns = nil
	}
	return nil
}

// UpdateLabel replaces the label of an event, typically with a human
// score. Setting UnscoredLabel clears the scoring time.
func (db *DB) UpdateLabel(eventID, label string) error {
	label = strings.TrimSpace(label)
	if label == "" || strings.ContainsAny(label, ",\n\r") {
		return fmt.Errorf("%w %q", ErrInvalidLabel, label)
	}
	var labelledAt interface{}
	if label != reach.UnscoredLabel {
		labelledAt = db.now()
	}
	var n int64
	err := db.retryOnBusy(func() error {
		res, err := db.Exec(`UPDATE reach_events SET label = ?, labelled_at = ? WHERE event_id = ?`, label, labelledAt, eventID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update label: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return nil
}

// DeleteRun removes a run with its events and trajectories.
func (db *DB) DeleteRun(runID string) error {
	return db.retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.Exec(`DELETE FROM reach_trajectory_points WHERE event_id IN (SELECT event_id FROM reach_events WHERE run_id = ?)`, runID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM reach_events WHERE run_id = ?`, runID); err != nil {
			return err
		}
		res, err := tx.Exec(`DELETE FROM reach_runs WHERE run_id = ?`, runID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return tx.Commit()
	})
}
