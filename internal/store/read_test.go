package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRun_RoundTrip(t *testing.T) {
	s := createTestStore(t, "run-1")
	ctx := context.Background()

	started := time.Date(2026, 3, 14, 15, 9, 26, 535897000, time.UTC)
	written, err := s.WriteRun(ctx, Run{
		Scenario:  "plain_counter",
		Kind:      "race",
		Policy:    "plain",
		Params:    json.RawMessage(`{"workers":2,"increments":10}`),
		StartedAt: started,
	})
	require.NoError(t, err)

	got, err := s.ReadRun(ctx, written.ID)
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, "plain_counter", got.Scenario)
	assert.Equal(t, "race", got.Kind)
	assert.Equal(t, "plain", got.Policy)
	assert.JSONEq(t, `{"workers":2,"increments":10}`, string(got.Params))
	assert.True(t, started.Equal(got.StartedAt), "got %v", got.StartedAt)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadTrials_OrderedBySeq(t *testing.T) {
	s := createTestStore(t, "run-1")
	ctx := context.Background()

	run, err := s.WriteRun(ctx, Run{Scenario: "flag", Kind: "signal", Policy: "atomic"})
	require.NoError(t, err)

	for _, seq := range []int64{3, 1, 2} {
		rec := TrialRecord{
			RunID:    run.ID,
			Seq:      seq,
			Observed: seq != 2,
			Elapsed:  time.Duration(seq) * time.Millisecond,
			Result:   json.RawMessage(`{}`),
		}
		if rec.Observed {
			rec.LatencyMS = int64Ptr(seq * 10)
		}
		require.NoError(t, s.WriteTrial(ctx, rec))
	}

	trials, err := s.ReadTrials(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, trials, 3)

	for i, trial := range trials {
		assert.Equal(t, int64(i+1), trial.Seq)
		assert.Equal(t, time.Duration(i+1)*time.Millisecond, trial.Elapsed)
	}
	require.NotNil(t, trials[0].LatencyMS)
	assert.Equal(t, int64(10), *trials[0].LatencyMS)
	assert.False(t, trials[1].Observed)
	assert.Nil(t, trials[1].LatencyMS, "unobserved latency stays null")
}

func TestReadTrials_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	trials, err := s.ReadTrials(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.NotNil(t, trials)
	assert.Empty(t, trials)
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	s := createTestStore(t, "a", "b", "c")
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.WriteRun(ctx, Run{
			Scenario:  "adhoc",
			Kind:      "race",
			Policy:    "atomic",
			StartedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	recent, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
}

func TestListRuns_SubSecondOrdering(t *testing.T) {
	s := createTestStore(t, "whole", "fraction")
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)
	_, err := s.WriteRun(ctx, Run{Scenario: "x", Kind: "race", Policy: "atomic", StartedAt: base})
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, Run{Scenario: "x", Kind: "race", Policy: "atomic", StartedAt: base.Add(500 * time.Millisecond)})
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fraction", runs[0].ID)
}

func TestPolicySummary(t *testing.T) {
	s := createTestStore(t, "plain-race", "atomic-race", "plain-signal")
	ctx := context.Background()

	plainRace, err := s.WriteRun(ctx, Run{Scenario: "r", Kind: "race", Policy: "plain"})
	require.NoError(t, err)
	atomicRace, err := s.WriteRun(ctx, Run{Scenario: "r", Kind: "race", Policy: "atomic"})
	require.NoError(t, err)
	plainSignal, err := s.WriteRun(ctx, Run{Scenario: "f", Kind: "signal", Policy: "plain"})
	require.NoError(t, err)

	records := []TrialRecord{
		{RunID: plainRace.ID, Seq: 1, LostUpdates: true, LostCount: 120},
		{RunID: plainRace.ID, Seq: 2, LostUpdates: true, LostCount: 900},
		{RunID: plainRace.ID, Seq: 3},
		{RunID: atomicRace.ID, Seq: 1},
		{RunID: atomicRace.ID, Seq: 2},
		{RunID: plainSignal.ID, Seq: 1, Observed: true, LatencyMS: int64Ptr(100)},
		{RunID: plainSignal.ID, Seq: 2},
	}
	for _, rec := range records {
		require.NoError(t, s.WriteTrial(ctx, rec))
	}

	stats, err := s.PolicySummary(ctx)
	require.NoError(t, err)

	assert.Equal(t, []PolicyStats{
		{Policy: "atomic", RaceTrials: 2},
		{Policy: "plain", RaceTrials: 3, LostTrials: 2, MaxLost: 900, SignalTrials: 2, NotObservedTrials: 1},
	}, stats)
}

func TestPolicySummary_Empty(t *testing.T) {
	s := createTestStore(t)

	stats, err := s.PolicySummary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats)
}
