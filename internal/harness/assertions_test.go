package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racelab/internal/policy"
)

func raceTrial(seq, final, expected int64) Trial {
	return Trial{
		Seq: seq,
		Race: &RaceResult{
			Policy:        policy.Plain,
			FinalValue:    final,
			ExpectedValue: expected,
			LostUpdates:   final != expected,
			LostCount:     expected - final,
		},
	}
}

func signalTrial(seq int64, latencyMS *int64) Trial {
	return Trial{
		Seq: seq,
		Signal: &SignalResult{
			Policy:    policy.Atomic,
			Observed:  latencyMS != nil,
			LatencyMS: latencyMS,
		},
	}
}

func ms(v int64) *int64 { return &v }

func resultOf(trials ...Trial) *Result {
	r := NewResult()
	r.Trials = trials
	return r
}

func TestAssertWithinBounds(t *testing.T) {
	ok := resultOf(raceTrial(1, 100, 100), raceTrial(2, 0, 100), raceTrial(3, 57, 100))
	assert.Empty(t, EvaluateAssertions(ok, []Assertion{{Type: AssertWithinBounds}}))

	over := resultOf(raceTrial(1, 100, 100), raceTrial(2, 101, 100))
	errs := EvaluateAssertions(over, []Assertion{{Type: AssertWithinBounds}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "within_bounds")
	assert.Contains(t, errs[0], "trial 2 final value 101")

	negative := resultOf(raceTrial(1, -1, 100))
	assert.Len(t, EvaluateAssertions(negative, []Assertion{{Type: AssertWithinBounds}}), 1)
}

func TestAssertExactCount(t *testing.T) {
	ok := resultOf(raceTrial(1, 200, 200), raceTrial(2, 200, 200))
	assert.Empty(t, EvaluateAssertions(ok, []Assertion{{Type: AssertExactCount}}))

	lost := resultOf(raceTrial(1, 200, 200), raceTrial(2, 150, 200))
	errs := EvaluateAssertions(lost, []Assertion{{Type: AssertExactCount}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "trial 2 final value 150 (50 lost)")
}

func TestAssertLostUpdatesSeen(t *testing.T) {
	seen := resultOf(raceTrial(1, 200, 200), raceTrial(2, 199, 200))
	assert.Empty(t, EvaluateAssertions(seen, []Assertion{{Type: AssertLostUpdatesSeen}}))

	never := resultOf(raceTrial(1, 200, 200), raceTrial(2, 200, 200))
	errs := EvaluateAssertions(never, []Assertion{{Type: AssertLostUpdatesSeen}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no lost updates across 2 trial(s)")
}

func TestAssertNoLostUpdates(t *testing.T) {
	clean := resultOf(raceTrial(1, 10, 10))
	assert.Empty(t, EvaluateAssertions(clean, []Assertion{{Type: AssertNoLostUpdates}}))

	dirty := resultOf(raceTrial(1, 10, 10), raceTrial(2, 7, 10))
	errs := EvaluateAssertions(dirty, []Assertion{{Type: AssertNoLostUpdates}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "trial 2 lost 3 update(s)")
}

func TestAssertObserved(t *testing.T) {
	all := resultOf(signalTrial(1, ms(3)), signalTrial(2, ms(0)))
	assert.Empty(t, EvaluateAssertions(all, []Assertion{{Type: AssertObserved}}))

	missed := resultOf(signalTrial(1, ms(3)), signalTrial(2, nil))
	errs := EvaluateAssertions(missed, []Assertion{{Type: AssertObserved}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "trial 2 timed out")
}

func TestAssertLatencyBelow(t *testing.T) {
	fast := resultOf(signalTrial(1, ms(10)), signalTrial(2, ms(99)))
	assert.Empty(t, EvaluateAssertions(fast, []Assertion{{Type: AssertLatencyBelow, MaxMS: 100}}))

	slow := resultOf(signalTrial(1, ms(10)), signalTrial(2, ms(100)))
	errs := EvaluateAssertions(slow, []Assertion{{Type: AssertLatencyBelow, MaxMS: 100}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "trial 2 latency 100ms")

	// Unobserved trials are ignored here.
	missed := resultOf(signalTrial(1, nil))
	assert.Empty(t, EvaluateAssertions(missed, []Assertion{{Type: AssertLatencyBelow, MaxMS: 1}}))
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(resultOf(), []Assertion{{Type: "vibes"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unknown assertion type: vibes")
}

func TestEvaluateAssertions_MultipleFailures(t *testing.T) {
	r := resultOf(raceTrial(1, 5, 10))
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertWithinBounds},
		{Type: AssertExactCount},
		{Type: AssertNoLostUpdates},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 1 (exact_count)")
	assert.Contains(t, errs[1], "assertion 2 (no_lost_updates)")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertExactCount,
		Expected: "final value 10 in every trial",
		Actual:   "trial 2 final value 7 (3 lost)",
		Trials:   []Trial{raceTrial(1, 10, 10), raceTrial(2, 7, 10), signalTrial(3, nil), signalTrial(4, ms(12))},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: exact_count")
	assert.Contains(t, msg, "Expected: final value 10 in every trial")
	assert.Contains(t, msg, "Actual: trial 2 final value 7 (3 lost)")
	assert.Contains(t, msg, "[2] plain final=7 expected=10 lost=3")
	assert.Contains(t, msg, "[3] atomic not observed")
	assert.Contains(t, msg, "[4] atomic observed latency=12ms")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("nope")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"nope"}, r.Errors)
}
