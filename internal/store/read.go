package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// ReadRun retrieves a single run by ID.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, kind, policy, params, started_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return run, err
}

// ReadTrials returns the trials of a run ordered by seq.
// Returns an empty slice (not nil) if the run has no trials.
func (s *Store) ReadTrials(ctx context.Context, runID string) ([]TrialRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, lost_updates, lost_count, observed, latency_ms, elapsed_ns, result
		FROM trials
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	trials := []TrialRecord{}
	for rows.Next() {
		var (
			t         TrialRecord
			lost, obs int
			latency   sql.NullInt64
			elapsed   int64
			result    string
		)
		if err := rows.Scan(&t.RunID, &t.Seq, &lost, &t.LostCount, &obs, &latency, &elapsed, &result); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		t.LostUpdates = lost != 0
		t.Observed = obs != 0
		if latency.Valid {
			v := latency.Int64
			t.LatencyMS = &v
		}
		t.Elapsed = time.Duration(elapsed)
		t.Result = json.RawMessage(result)
		trials = append(trials, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}

	return trials, nil
}

// ListRuns returns the most recent runs, newest first.
// A limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, kind, policy, params, started_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// PolicySummary aggregates all recorded trials per policy, ordered by
// policy name.
func (s *Store) PolicySummary(ctx context.Context) ([]PolicyStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			r.policy,
			SUM(CASE WHEN r.kind = 'race' THEN 1 ELSE 0 END),
			SUM(CASE WHEN r.kind = 'race' AND t.lost_updates = 1 THEN 1 ELSE 0 END),
			MAX(CASE WHEN r.kind = 'race' THEN t.lost_count ELSE 0 END),
			SUM(CASE WHEN r.kind = 'signal' THEN 1 ELSE 0 END),
			SUM(CASE WHEN r.kind = 'signal' AND t.observed = 0 THEN 1 ELSE 0 END)
		FROM trials t
		JOIN runs r ON t.run_id = r.id
		GROUP BY r.policy
		ORDER BY r.policy ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query policy summary: %w", err)
	}
	defer rows.Close()

	stats := []PolicyStats{}
	for rows.Next() {
		var ps PolicyStats
		if err := rows.Scan(
			&ps.Policy,
			&ps.RaceTrials,
			&ps.LostTrials,
			&ps.MaxLost,
			&ps.SignalTrials,
			&ps.NotObservedTrials,
		); err != nil {
			return nil, fmt.Errorf("scan policy summary: %w", err)
		}
		stats = append(stats, ps)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policy summary: %w", err)
	}

	return stats, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		params    string
		startedAt string
	)
	if err := row.Scan(&run.ID, &run.Scenario, &run.Kind, &run.Policy, &params, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	ts, err := time.Parse(timeFormat, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	run.StartedAt = ts
	run.Params = json.RawMessage(params)
	return run, nil
}
