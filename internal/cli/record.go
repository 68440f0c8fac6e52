package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/racelab/internal/harness"
	"github.com/roach88/racelab/internal/store"
)

// errLedger marks failures writing to the ledger.
var errLedger = errors.New("ledger")

// recorder writes trials to the ledger when --db is set.
// A nil *recorder records nothing.
type recorder struct {
	st     *store.Store
	logger *slog.Logger
}

// openRecorder opens the ledger at path, or returns nil when path is empty.
func openRecorder(path string, logger *slog.Logger, opts ...store.Option) (*recorder, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errLedger, err)
	}
	logger.Debug("ledger open", "path", path)
	return &recorder{st: st, logger: logger}, nil
}

// Close closes the ledger.
func (r *recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.st.Close()
}

// begin records a run for a validated scenario and returns the trial hook
// that records its trials. With a nil recorder it returns a nil hook.
func (r *recorder) begin(ctx context.Context, scenario *harness.Scenario) (string, harness.TrialHook, error) {
	if r == nil {
		return "", nil, nil
	}

	var params any = scenario.Race
	if scenario.Kind == harness.KindSignal {
		params = scenario.Signal
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", nil, fmt.Errorf("encode params: %w", err)
	}

	run, err := r.st.WriteRun(ctx, store.Run{
		Scenario: scenario.Name,
		Kind:     string(scenario.Kind),
		Policy:   scenario.VisibilityPolicy().String(),
		Params:   paramsJSON,
	})
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", errLedger, err)
	}
	r.logger.Debug("recording run", "run_id", run.ID, "scenario", scenario.Name)

	hook := func(ctx context.Context, trial harness.Trial) error {
		rec, err := trialRecord(run.ID, trial)
		if err != nil {
			return err
		}
		if err := r.st.WriteTrial(ctx, rec); err != nil {
			return fmt.Errorf("%w: %w", errLedger, err)
		}
		return nil
	}
	return run.ID, hook, nil
}

// trialRecord flattens a harness trial into a ledger record.
func trialRecord(runID string, trial harness.Trial) (store.TrialRecord, error) {
	rec := store.TrialRecord{RunID: runID, Seq: trial.Seq}

	var result any
	switch {
	case trial.Race != nil:
		rec.LostUpdates = trial.Race.LostUpdates
		rec.LostCount = trial.Race.LostCount
		rec.Elapsed = trial.Race.Elapsed
		result = trial.Race
	case trial.Signal != nil:
		rec.Observed = trial.Signal.Observed
		rec.LatencyMS = trial.Signal.LatencyMS
		rec.Elapsed = trial.Signal.Latency
		result = trial.Signal
	default:
		return store.TrialRecord{}, fmt.Errorf("trial %d has no result", trial.Seq)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return store.TrialRecord{}, fmt.Errorf("encode trial %d: %w", trial.Seq, err)
	}
	rec.Result = data
	return rec, nil
}

// runAdHoc runs a scenario's trials without assertions, recording them when
// dbPath is set. Failures are reported through the command's formatter and
// returned as *ExitError.
func runAdHoc(cmd *cobra.Command, opts *RootOptions, dbPath string, scenario *harness.Scenario) (*harness.Result, string, error) {
	f := newFormatter(opts, cmd)
	logger := newLogger(opts, cmd.ErrOrStderr())

	if err := scenario.ValidatePlan(); err != nil {
		return nil, "", f.Fail("invalid configuration", err)
	}

	ctx, cancel := interruptContext(cmd, logger)
	defer cancel()

	rec, err := openRecorder(dbPath, logger)
	if err != nil {
		return nil, "", f.Fail("failed to open ledger", err)
	}
	defer func() {
		if closeErr := rec.Close(); closeErr != nil {
			logger.Error("error closing ledger", "error", closeErr)
		}
	}()

	runID, hook, err := rec.begin(ctx, scenario)
	if err != nil {
		return nil, "", f.Fail("failed to record run", err)
	}

	result, err := harness.RunTrials(ctx, scenario,
		harness.WithLogger(logger),
		harness.WithTrialHook(hook),
	)
	if err != nil {
		return nil, "", f.Fail(fmt.Sprintf("%s failed", scenario.Name), err)
	}
	return result, runID, nil
}
