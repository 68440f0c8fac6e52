package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot captures the deterministic parts of a scenario execution: the
// plan and the per-trial outcome class. Timings and raw counts under racy
// policies vary run to run and are left out.
type Snapshot struct {
	Scenario string        `json:"scenario"`
	Kind     Kind          `json:"kind"`
	Policy   string        `json:"policy"`
	Trials   int           `json:"trials"`
	Race     *RaceParams   `json:"race,omitempty"`
	Signal   *SignalParams `json:"signal,omitempty"`
	Pass     bool          `json:"pass"`
	Outcomes []Outcome     `json:"outcomes"`
}

// Outcome classifies one trial.
type Outcome struct {
	Seq     int64  `json:"seq"`
	Outcome string `json:"outcome"`
}

// Outcome classes.
const (
	OutcomeExact       = "exact"
	OutcomeLost        = "lost"
	OutcomeObserved    = "observed"
	OutcomeNotObserved = "not_observed"
)

// Classify returns the outcome class of a trial.
func Classify(trial Trial) string {
	switch {
	case trial.Race != nil && trial.Race.LostUpdates:
		return OutcomeLost
	case trial.Race != nil:
		return OutcomeExact
	case trial.Signal != nil && trial.Signal.Observed:
		return OutcomeObserved
	default:
		return OutcomeNotObserved
	}
}

// NewSnapshot builds a snapshot from a scenario and its result.
func NewSnapshot(scenario *Scenario, result *Result) Snapshot {
	outcomes := make([]Outcome, len(result.Trials))
	for i, trial := range result.Trials {
		outcomes[i] = Outcome{Seq: trial.Seq, Outcome: Classify(trial)}
	}
	return Snapshot{
		Scenario: scenario.Name,
		Kind:     scenario.Kind,
		Policy:   scenario.VisibilityPolicy().String(),
		Trials:   scenario.TrialCount(),
		Race:     scenario.Race,
		Signal:   scenario.Signal,
		Pass:     result.Pass,
		Outcomes: outcomes,
	}
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Only scenarios whose outcome classes are deterministic (atomic policy,
// generous signal timeouts) belong in golden tests.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, NewSnapshot(scenario, result))
}

// AssertGolden compares a snapshot against testdata/golden/{name}.golden.
func AssertGolden(t *testing.T, name string, snapshot Snapshot) error {
	t.Helper()

	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)

	return nil
}
