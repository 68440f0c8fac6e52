package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racelab/internal/harness"
	"github.com/roach88/racelab/internal/policy"
	"github.com/roach88/racelab/internal/testutil"
)

func TestCompareCommand_Race(t *testing.T) {
	// Every policy runs, plain included.
	testutil.SkipIfRacing(t)

	out, _, err := execute(t, "compare",
		"--workers", "2", "--increments", "10000", "--trials", "2", "--format", "json",
	)
	require.NoError(t, err)

	var report CompareReport
	decodeResponse(t, out, &report)
	assert.Equal(t, harness.KindRace, report.Kind)
	require.Len(t, report.Rows, 3)

	for i, p := range policy.All() {
		row := report.Rows[i]
		assert.Equal(t, p, row.Policy)
		assert.Equal(t, 2, row.Trials)
		assert.Equal(t, int64(20000), row.Expected)
		assert.LessOrEqual(t, row.MinFinal, row.Expected)
	}

	atomicRow := report.Rows[2]
	assert.Equal(t, policy.Atomic, atomicRow.Policy)
	assert.Zero(t, atomicRow.LostTrials)
	assert.Equal(t, int64(20000), atomicRow.MinFinal)
}

func TestCompareCommand_Signal(t *testing.T) {
	testutil.SkipIfRacing(t)

	out, _, err := execute(t, "compare",
		"--kind", "signal", "--delay", "10", "--timeout", "500", "--interval", "5", "--trials", "1",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "POLICY")
	assert.Contains(t, out, "WORST LATENCY")
	assert.Contains(t, out, "atomic")
}

func TestCompareCommand_UnknownKind(t *testing.T) {
	out, _, err := execute(t, "compare", "--kind", "deadlock", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, ErrCodeInvalidConfig, resp.Error.Code)
}

func TestSummarize(t *testing.T) {
	trials := []harness.Trial{
		{Seq: 1, Race: &harness.RaceResult{FinalValue: 90, ExpectedValue: 100, LostUpdates: true, LostCount: 10}},
		{Seq: 2, Race: &harness.RaceResult{FinalValue: 100, ExpectedValue: 100}},
		{Seq: 3, Race: &harness.RaceResult{FinalValue: 60, ExpectedValue: 100, LostUpdates: true, LostCount: 40}},
	}

	row := summarize(policy.Plain, trials)
	assert.Equal(t, CompareRow{
		Policy:     policy.Plain,
		Trials:     3,
		LostTrials: 2,
		MaxLost:    40,
		MinFinal:   60,
		Expected:   100,
	}, row)

	latency := func(v int64) *int64 { return &v }
	signals := []harness.Trial{
		{Seq: 1, Signal: &harness.SignalResult{Observed: true, LatencyMS: latency(12)}},
		{Seq: 2, Signal: &harness.SignalResult{}},
		{Seq: 3, Signal: &harness.SignalResult{Observed: true, LatencyMS: latency(30)}},
	}

	row = summarize(policy.Atomic, signals)
	assert.Equal(t, 2, row.ObservedTrials)
	require.NotNil(t, row.MaxLatencyMS)
	assert.Equal(t, int64(30), *row.MaxLatencyMS)
}
