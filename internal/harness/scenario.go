package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/racelab/internal/policy"
)

// ErrInvalidScenario wraps every scenario load or validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario describes a batch of harness trials and what must hold across them.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description" json:"description"`

	// Kind selects the harness: race or signal.
	Kind Kind `yaml:"kind" json:"kind"`

	// Policy is the visibility policy name (plain, visibility_only, atomic).
	Policy string `yaml:"policy" json:"policy"`

	// Trials is the number of independent runs. Defaults to 1.
	Trials int `yaml:"trials,omitempty" json:"trials,omitempty"`

	// Race holds parameters for kind race.
	Race *RaceParams `yaml:"race,omitempty" json:"race,omitempty"`

	// Signal holds parameters for kind signal.
	Signal *SignalParams `yaml:"signal,omitempty" json:"signal,omitempty"`

	// Assertions are evaluated over all trials once they finish.
	Assertions []Assertion `yaml:"assertions" json:"assertions,omitempty"`

	policy policy.Policy
}

// RaceParams configures RaceHarness trials.
type RaceParams struct {
	Workers    int `yaml:"workers" json:"workers"`
	Increments int `yaml:"increments" json:"increments"`
}

// SignalParams configures SignalHarness trials.
type SignalParams struct {
	SignalDelayMS int `yaml:"signal_delay_ms" json:"signal_delay_ms"`
	PollTimeoutMS int `yaml:"poll_timeout_ms" json:"poll_timeout_ms"`

	// PollIntervalMS overrides DefaultPollInterval when > 0.
	PollIntervalMS int `yaml:"poll_interval_ms,omitempty" json:"poll_interval_ms,omitempty"`
}

// Assertion is a property checked across a scenario's trials.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" json:"type"`

	// MaxMS is the exclusive latency bound (used by latency_below).
	MaxMS int64 `yaml:"max_ms,omitempty" json:"max_ms,omitempty"`
}

// Assertion type constants.
const (
	AssertWithinBounds    = "within_bounds"
	AssertExactCount      = "exact_count"
	AssertLostUpdatesSeen = "lost_updates_seen"
	AssertNoLostUpdates   = "no_lost_updates"
	AssertObserved        = "observed"
	AssertLatencyBelow    = "latency_below"
)

var assertionKinds = map[string]Kind{
	AssertWithinBounds:    KindRace,
	AssertExactCount:      KindRace,
	AssertLostUpdatesSeen: KindRace,
	AssertNoLostUpdates:   KindRace,
	AssertObserved:        KindSignal,
	AssertLatencyBelow:    KindSignal,
}

// VisibilityPolicy returns the parsed policy. Valid after loading or
// after Validate succeeds.
func (s *Scenario) VisibilityPolicy() policy.Policy {
	return s.policy
}

// TrialCount returns Trials, defaulting to 1.
func (s *Scenario) TrialCount() int {
	if s.Trials <= 0 {
		return 1
	}
	return s.Trials
}

// Validate runs the schema and semantic checks and resolves the policy.
// Scenarios built in code must be validated before Run.
func (s *Scenario) Validate() error {
	return s.validate(true)
}

// ValidatePlan is Validate without requiring assertions: it checks what
// RunTrials needs to execute the scenario.
func (s *Scenario) ValidatePlan() error {
	return s.validate(false)
}

func (s *Scenario) validate(requireAssertions bool) error {
	if err := validateScenario(s, requireAssertions); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if err := ValidateSchema(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return LoadScenarioBytes(data)
}

// LoadScenarioBytes parses and validates scenario YAML.
func LoadScenarioBytes(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalidScenario, err)
	}

	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario, requireAssertions bool) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	p, err := policy.Parse(s.Policy)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	s.policy = p

	if s.Trials < 0 {
		return fmt.Errorf("trials must be non-negative")
	}

	switch s.Kind {
	case KindRace:
		if s.Race == nil {
			return fmt.Errorf("race parameters are required for kind race")
		}
		if s.Signal != nil {
			return fmt.Errorf("signal parameters are not allowed for kind race")
		}
		if s.Race.Workers <= 0 {
			return fmt.Errorf("race.workers must be > 0")
		}
		if s.Race.Increments <= 0 {
			return fmt.Errorf("race.increments must be > 0")
		}
	case KindSignal:
		if s.Signal == nil {
			return fmt.Errorf("signal parameters are required for kind signal")
		}
		if s.Race != nil {
			return fmt.Errorf("race parameters are not allowed for kind signal")
		}
		if s.Signal.SignalDelayMS < 0 {
			return fmt.Errorf("signal.signal_delay_ms must be >= 0")
		}
		if s.Signal.PollTimeoutMS < 0 {
			return fmt.Errorf("signal.poll_timeout_ms must be >= 0")
		}
		if s.Signal.PollIntervalMS < 0 {
			return fmt.Errorf("signal.poll_interval_ms must be >= 0")
		}
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown kind %q", s.Kind)
	}

	if requireAssertions && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, s.Kind, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion against the scenario kind.
func validateAssertion(index int, kind Kind, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	want, ok := assertionKinds[a.Type]
	if !ok {
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if want != kind {
		return fmt.Errorf("assertions[%d]: %s applies to %s scenarios, not %s", index, a.Type, want, kind)
	}

	if a.Type == AssertLatencyBelow && a.MaxMS <= 0 {
		return fmt.Errorf("assertions[%d]: max_ms must be > 0 for latency_below", index)
	}

	return nil
}
