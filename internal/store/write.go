package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecord is returned when a record is missing required fields.
var ErrInvalidRecord = errors.New("invalid record")

// timeFormat is fixed-width so started_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// WriteRun inserts a run and returns it with ID assigned.
// An empty ID is filled from the store's IDGenerator; a zero StartedAt is
// set to now.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.Scenario == "" || run.Kind == "" || run.Policy == "" {
		return Run{}, fmt.Errorf("write run: %w: scenario, kind and policy are required", ErrInvalidRecord)
	}
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()

	params := string(run.Params)
	if params == "" {
		params = "{}"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, kind, policy, params, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Scenario,
		run.Kind,
		run.Policy,
		params,
		run.StartedAt.Format(timeFormat),
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	return run, nil
}

// WriteTrial inserts a trial record.
// Uses ON CONFLICT(run_id, seq) DO NOTHING, so rewriting a trial is a no-op.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteTrial(ctx context.Context, trial TrialRecord) error {
	if trial.RunID == "" {
		return fmt.Errorf("write trial: %w: run_id is required", ErrInvalidRecord)
	}
	result := string(trial.Result)
	if result == "" {
		result = "{}"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trials
		(run_id, seq, lost_updates, lost_count, observed, latency_ms, elapsed_ns, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		trial.RunID,
		trial.Seq,
		boolToInt(trial.LostUpdates),
		trial.LostCount,
		boolToInt(trial.Observed),
		trial.LatencyMS,
		int64(trial.Elapsed),
		result,
	)
	if err != nil {
		return fmt.Errorf("write trial: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
