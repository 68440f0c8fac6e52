package store

import (
	"encoding/json"
	"time"
)

// Run is one recorded scenario execution.
type Run struct {
	ID        string          `json:"id"`
	Scenario  string          `json:"scenario"`
	Kind      string          `json:"kind"`
	Policy    string          `json:"policy"`
	Params    json.RawMessage `json:"params,omitempty"`
	StartedAt time.Time       `json:"started_at"`
}

// TrialRecord is one trial of a run, flattened for storage.
//
// LostUpdates and LostCount are meaningful for race runs; Observed and
// LatencyMS for signal runs. Result holds the full harness result.
type TrialRecord struct {
	RunID       string          `json:"run_id"`
	Seq         int64           `json:"seq"`
	LostUpdates bool            `json:"lost_updates"`
	LostCount   int64           `json:"lost_count"`
	Observed    bool            `json:"observed"`
	LatencyMS   *int64          `json:"latency_ms"`
	Elapsed     time.Duration   `json:"elapsed_ns"`
	Result      json.RawMessage `json:"result"`
}

// PolicyStats aggregates every recorded trial of one policy.
type PolicyStats struct {
	Policy string `json:"policy"`

	RaceTrials int64 `json:"race_trials"`
	LostTrials int64 `json:"lost_trials"`
	MaxLost    int64 `json:"max_lost"`

	SignalTrials      int64 `json:"signal_trials"`
	NotObservedTrials int64 `json:"not_observed_trials"`
}
