package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cdcm-sim/cdcm/sim/trace"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run describes one persisted simulation run.
type Run struct {
	ID         string
	Scenario   string
	Seed       int64
	DT         float64
	Units      string
	Steps      int
	TraceLevel trace.TraceLevel
}

// NewRunID returns a time-ordered run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SaveRun writes run and its trace in one transaction. An empty run.ID is
// filled with NewRunID; the ID actually used is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, st *trace.SimulationTrace) (string, error) {
	if st == nil {
		return "", errors.New("save run: nil trace")
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, seed, dt, units, steps, trace_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Scenario, run.Seed, run.DT, run.Units, run.Steps, string(st.Config.Level)); err != nil {
		return "", fmt.Errorf("save run %s: %w", run.ID, err)
	}

	sampleStmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (run_id, step, time, path, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("save run %s: %w", run.ID, err)
	}
	defer sampleStmt.Close()
	for _, r := range st.Samples {
		if _, err := sampleStmt.ExecContext(ctx, run.ID, r.Step, r.Time, r.Path, r.Value); err != nil {
			return "", fmt.Errorf("save sample %s@%d: %w", r.Path, r.Step, err)
		}
	}

	for i, e := range st.EventErrors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO event_errors (run_id, seq, name, scheduled_at, now, message)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, e.Name, e.ScheduledAt, e.Now, e.Message); err != nil {
			return "", fmt.Errorf("save event error %q: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

// LoadRun reads a run and rebuilds its trace. Samples come back ordered by
// step, then path.
func (s *Store) LoadRun(ctx context.Context, id string) (Run, *trace.SimulationTrace, error) {
	run := Run{ID: id}
	var level string
	err := s.db.QueryRowContext(ctx, `
		SELECT scenario, seed, dt, units, steps, trace_level FROM runs WHERE id = ?
	`, id).Scan(&run.Scenario, &run.Seed, &run.DT, &run.Units, &run.Steps, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("load run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("load run %s: %w", id, err)
	}
	run.TraceLevel = trace.TraceLevel(level)
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: run.TraceLevel})

	rows, err := s.db.QueryContext(ctx, `
		SELECT step, time, path, value FROM samples
		WHERE run_id = ?
		ORDER BY step ASC, path COLLATE BINARY ASC
	`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r trace.SampleRecord
		if err := rows.Scan(&r.Step, &r.Time, &r.Path, &r.Value); err != nil {
			return Run{}, nil, fmt.Errorf("scan sample: %w", err)
		}
		st.RecordSample(r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("iterate samples: %w", err)
	}

	erows, err := s.db.QueryContext(ctx, `
		SELECT name, scheduled_at, now, message FROM event_errors
		WHERE run_id = ? ORDER BY seq ASC
	`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query event errors: %w", err)
	}
	defer erows.Close()
	for erows.Next() {
		var e trace.EventErrorRecord
		if err := erows.Scan(&e.Name, &e.ScheduledAt, &e.Now, &e.Message); err != nil {
			return Run{}, nil, fmt.Errorf("scan event error: %w", err)
		}
		st.RecordEventError(e)
	}
	if err := erows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("iterate event errors: %w", err)
	}
	return run, st, nil
}

// ListRuns returns every stored run ordered by ID, which for UUIDv7 is
// creation order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, seed, dt, units, steps, trace_level FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	runs := make([]Run, 0)
	for rows.Next() {
		var r Run
		var level string
		if err := rows.Scan(&r.ID, &r.Scenario, &r.Seed, &r.DT, &r.Units, &r.Steps, &level); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.TraceLevel = trace.TraceLevel(level)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
