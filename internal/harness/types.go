package harness

import (
	"time"

	"github.com/roach88/racelab/internal/policy"
)

// WorkerResult is what a single worker reports back to its controller.
type WorkerResult struct {
	ID int `json:"id"`

	// Iterations counts loop iterations: increments issued (race) or
	// work units executed (signal).
	Iterations int64 `json:"iterations"`

	// Contribution is the number of increments this worker issued.
	// Zero for signal workers.
	Contribution int64 `json:"contribution,omitempty"`

	// StoppedAt is when a signal worker observed the flag.
	// Zero if it never did.
	StoppedAt time.Time `json:"stopped_at,omitzero"`
}

// RaceResult is the outcome of one RaceHarness run.
type RaceResult struct {
	Policy        policy.Policy  `json:"policy"`
	FinalValue    int64          `json:"final_value"`
	ExpectedValue int64          `json:"expected_value"`
	LostUpdates   bool           `json:"lost_updates"`
	LostCount     int64          `json:"lost_count"`
	Workers       []WorkerResult `json:"workers"`
	Elapsed       time.Duration  `json:"elapsed_ns"`
}

// SignalResult is the outcome of one SignalHarness run.
type SignalResult struct {
	Policy   policy.Policy `json:"policy"`
	Observed bool          `json:"observed"`

	// LatencyMS is the time from signal to observed stop, or nil when the
	// worker did not stop within the poll timeout.
	LatencyMS *int64 `json:"latency_ms"`

	// Latency is LatencyMS at full resolution; zero when not observed.
	Latency time.Duration `json:"latency_ns"`

	Worker     WorkerResult `json:"worker"`
	SignaledAt time.Time    `json:"signaled_at"`
}

// Kind selects which harness a scenario drives.
type Kind string

const (
	KindRace   Kind = "race"
	KindSignal Kind = "signal"
)

// Trial is one execution within a scenario run. Exactly one of Race and
// Signal is set, matching the scenario kind.
type Trial struct {
	Seq    int64         `json:"seq"`
	Race   *RaceResult   `json:"race,omitempty"`
	Signal *SignalResult `json:"signal,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates every assertion held.
	Pass bool `json:"pass"`

	// Trials holds each trial in execution order.
	Trials []Trial `json:"trials"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trials: []Trial{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRaceTrial appends a race trial.
func (r *Result) AddRaceTrial(seq int64, res *RaceResult) {
	r.Trials = append(r.Trials, Trial{Seq: seq, Race: res})
}

// AddSignalTrial appends a signal trial.
func (r *Result) AddSignalTrial(seq int64, res *SignalResult) {
	r.Trials = append(r.Trials, Trial{Seq: seq, Signal: res})
}
