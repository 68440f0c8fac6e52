package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes per-trial outcomes to help debug the failure.
type AssertionError struct {
	Type     string  // Assertion type for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	Trials   []Trial // All trials for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trials) > 0 {
		fmt.Fprintf(&buf, "\nTrials:\n")
		for _, trial := range e.Trials {
			fmt.Fprintf(&buf, "  [%d] %s\n", trial.Seq, describeTrial(trial))
		}
	}

	return buf.String()
}

// describeTrial renders a one-line outcome of a trial.
func describeTrial(trial Trial) string {
	switch {
	case trial.Race != nil:
		r := trial.Race
		return fmt.Sprintf("%s final=%d expected=%d lost=%d", r.Policy, r.FinalValue, r.ExpectedValue, r.LostCount)
	case trial.Signal != nil:
		s := trial.Signal
		if !s.Observed {
			return fmt.Sprintf("%s not observed", s.Policy)
		}
		return fmt.Sprintf("%s observed latency=%dms", s.Policy, *s.LatencyMS)
	default:
		return "empty trial"
	}
}

// EvaluateAssertions evaluates all assertions against a result.
// Returns a list of failure messages (empty if all pass).
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertWithinBounds:
			err = assertWithinBounds(result.Trials)
		case AssertExactCount:
			err = assertExactCount(result.Trials)
		case AssertLostUpdatesSeen:
			err = assertLostUpdatesSeen(result.Trials)
		case AssertNoLostUpdates:
			err = assertNoLostUpdates(result.Trials)
		case AssertObserved:
			err = assertObserved(result.Trials)
		case AssertLatencyBelow:
			err = assertLatencyBelow(result.Trials, assertion.MaxMS)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, assertion.Type, err))
		}
	}

	return errs
}

// assertWithinBounds checks 0 <= final <= expected for every race trial.
func assertWithinBounds(trials []Trial) error {
	for _, trial := range trials {
		r := trial.Race
		if r == nil {
			continue
		}
		if r.FinalValue < 0 || r.FinalValue > r.ExpectedValue {
			return &AssertionError{
				Type:     AssertWithinBounds,
				Expected: fmt.Sprintf("final value in [0, %d]", r.ExpectedValue),
				Actual:   fmt.Sprintf("trial %d final value %d", trial.Seq, r.FinalValue),
				Trials:   trials,
			}
		}
	}
	return nil
}

// assertExactCount checks final == expected for every race trial.
func assertExactCount(trials []Trial) error {
	for _, trial := range trials {
		r := trial.Race
		if r == nil {
			continue
		}
		if r.FinalValue != r.ExpectedValue {
			return &AssertionError{
				Type:     AssertExactCount,
				Expected: fmt.Sprintf("final value %d in every trial", r.ExpectedValue),
				Actual:   fmt.Sprintf("trial %d final value %d (%d lost)", trial.Seq, r.FinalValue, r.LostCount),
				Trials:   trials,
			}
		}
	}
	return nil
}

// assertLostUpdatesSeen checks that at least one race trial lost updates.
func assertLostUpdatesSeen(trials []Trial) error {
	races := 0
	for _, trial := range trials {
		if trial.Race == nil {
			continue
		}
		races++
		if trial.Race.LostUpdates {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLostUpdatesSeen,
		Expected: "lost updates in at least one trial",
		Actual:   fmt.Sprintf("no lost updates across %d trial(s)", races),
		Trials:   trials,
	}
}

// assertNoLostUpdates checks that no race trial lost updates.
func assertNoLostUpdates(trials []Trial) error {
	for _, trial := range trials {
		if trial.Race != nil && trial.Race.LostUpdates {
			return &AssertionError{
				Type:     AssertNoLostUpdates,
				Expected: "no lost updates in any trial",
				Actual:   fmt.Sprintf("trial %d lost %d update(s)", trial.Seq, trial.Race.LostCount),
				Trials:   trials,
			}
		}
	}
	return nil
}

// assertObserved checks that every signal trial observed the stop flag.
func assertObserved(trials []Trial) error {
	for _, trial := range trials {
		if trial.Signal != nil && !trial.Signal.Observed {
			return &AssertionError{
				Type:     AssertObserved,
				Expected: "stop flag observed in every trial",
				Actual:   fmt.Sprintf("trial %d timed out without observing the flag", trial.Seq),
				Trials:   trials,
			}
		}
	}
	return nil
}

// assertLatencyBelow checks latency_ms < maxMS for every observed signal
// trial. Unobserved trials are the concern of assertObserved.
func assertLatencyBelow(trials []Trial, maxMS int64) error {
	for _, trial := range trials {
		s := trial.Signal
		if s == nil || !s.Observed {
			continue
		}
		if *s.LatencyMS >= maxMS {
			return &AssertionError{
				Type:     AssertLatencyBelow,
				Expected: fmt.Sprintf("latency below %dms", maxMS),
				Actual:   fmt.Sprintf("trial %d latency %dms", trial.Seq, *s.LatencyMS),
				Trials:   trials,
			}
		}
	}
	return nil
}
