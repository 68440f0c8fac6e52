package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// TrialHook is called after each trial completes, in order. Returning an
// error aborts the scenario.
type TrialHook func(ctx context.Context, trial Trial) error

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	hook   TrialHook
	clock  *Clock
}

// WithLogger sets the logger passed to the harnesses.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) { c.logger = logger }
}

// WithTrialHook registers a hook called after every trial.
func WithTrialHook(hook TrialHook) Option {
	return func(c *runConfig) { c.hook = hook }
}

// WithClock stamps trials from an existing clock instead of a fresh one.
func WithClock(clock *Clock) Option {
	return func(c *runConfig) { c.clock = clock }
}

// Run executes a scenario and returns the result.
//
// Every trial constructs fresh shared state, so trials are independent.
// A configuration error or worker fault aborts the run with an error;
// failed assertions are reported in the result. Cancellation is checked
// between trials only: a trial in progress always runs to completion.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	result, logger, err := runTrials(ctx, scenario, opts)
	if err != nil {
		return nil, err
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	logger.Info("scenario finished",
		"trials", len(result.Trials),
		"pass", result.Pass,
	)

	return result, nil
}

// RunTrials executes a scenario's trials without evaluating assertions,
// for ad-hoc runs that only report outcomes. The scenario may have no
// assertions; any it has are ignored. The returned result always passes.
func RunTrials(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	if err := scenario.ValidatePlan(); err != nil {
		return nil, err
	}

	result, logger, err := runTrials(ctx, scenario, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("trials finished", "trials", len(result.Trials))
	return result, nil
}

func runTrials(ctx context.Context, scenario *Scenario, opts []Option) (*Result, *slog.Logger, error) {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}

	logger := cfg.logger.With("scenario", scenario.Name)
	p := scenario.VisibilityPolicy()

	var race *RaceHarness
	var signal *SignalHarness
	switch scenario.Kind {
	case KindRace:
		race = NewRaceHarness(logger)
	case KindSignal:
		signal = NewSignalHarness(logger)
		if scenario.Signal.PollIntervalMS > 0 {
			signal.PollInterval = time.Duration(scenario.Signal.PollIntervalMS) * time.Millisecond
		}
	}

	result := NewResult()
	trials := scenario.TrialCount()

	for i := 0; i < trials; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("scenario %s stopped after %d of %d trials: %w", scenario.Name, i, trials, err)
		}

		seq := cfg.clock.Next()

		switch scenario.Kind {
		case KindRace:
			res, err := race.Run(p, scenario.Race.Workers, scenario.Race.Increments)
			if err != nil {
				return nil, nil, fmt.Errorf("trial %d: %w", seq, err)
			}
			result.AddRaceTrial(seq, res)
		case KindSignal:
			res, err := signal.Run(p, scenario.Signal.SignalDelayMS, scenario.Signal.PollTimeoutMS)
			if err != nil {
				return nil, nil, fmt.Errorf("trial %d: %w", seq, err)
			}
			result.AddSignalTrial(seq, res)
		}
		trial := result.Trials[len(result.Trials)-1]

		logger.Debug("trial completed", "seq", seq, "outcome", describeTrial(trial))

		if cfg.hook != nil {
			if err := cfg.hook(ctx, trial); err != nil {
				return nil, nil, fmt.Errorf("trial %d hook: %w", seq, err)
			}
		}
	}

	return result, logger, nil
}
