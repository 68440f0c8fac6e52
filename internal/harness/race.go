package harness

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/roach88/racelab/internal/policy"
)

// RaceHarness runs concurrent increments against a shared counter and
// reports how many were lost.
type RaceHarness struct {
	logger *slog.Logger

	// beforeIncrement, when set, runs before every increment.
	beforeIncrement func(worker int, i int64)
}

// NewRaceHarness creates a RaceHarness. A nil logger discards output.
func NewRaceHarness(logger *slog.Logger) *RaceHarness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RaceHarness{logger: logger}
}

// Run spawns workers goroutines that each increment a fresh counter
// increments times under policy p, joins them, and reports the final value.
//
// The join is unbounded: increments are a fixed, non-blocking loop.
// A final value outside [0, workers*increments] is reported as
// ErrInternalFault, never as a race artifact.
func (h *RaceHarness) Run(p policy.Policy, workers, increments int) (*RaceResult, error) {
	if err := validateRace(p, workers, increments); err != nil {
		return nil, err
	}

	counter := policy.NewCounter(p)
	expected := int64(workers) * int64(increments)

	results := make([]WorkerResult, workers)
	faults := make(chan *FaultError, workers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					faults <- recoverFault(id, r)
				}
			}()

			<-start
			var n int64
			for n = 0; n < int64(increments); n++ {
				if h.beforeIncrement != nil {
					h.beforeIncrement(id, n)
				}
				counter.Increment()
			}
			results[id] = WorkerResult{ID: id, Iterations: n, Contribution: n}
		}(w)
	}

	h.logger.Debug("race workers spawned",
		"policy", p,
		"workers", workers,
		"increments", increments,
	)

	began := time.Now()
	close(start)
	wg.Wait()
	elapsed := time.Since(began)

	close(faults)
	if fault, ok := <-faults; ok {
		h.logger.Error("race worker faulted", "worker", fault.Worker, "error", fault.Cause)
		return nil, fault
	}

	final := counter.Load()
	if final < 0 || final > expected {
		return nil, &FaultError{
			Worker: -1,
			Cause:  fmt.Errorf("final value %d outside [0, %d]", final, expected),
		}
	}

	var issued int64
	for _, r := range results {
		issued += r.Contribution
	}
	if issued != expected {
		return nil, &FaultError{
			Worker: -1,
			Cause:  fmt.Errorf("workers issued %d increments, want %d", issued, expected),
		}
	}

	result := &RaceResult{
		Policy:        p,
		FinalValue:    final,
		ExpectedValue: expected,
		LostUpdates:   final != expected,
		LostCount:     expected - final,
		Workers:       results,
		Elapsed:       elapsed,
	}

	h.logger.Info("race run complete",
		"policy", p,
		"final", final,
		"expected", expected,
		"lost", result.LostCount,
		"elapsed", elapsed,
	)

	return result, nil
}

// validateRace rejects bad parameters before any goroutine exists.
func validateRace(p policy.Policy, workers, increments int) error {
	if !p.Valid() {
		return &ConfigError{Field: "policy", Value: p, Reason: "unknown policy"}
	}
	if workers <= 0 {
		return &ConfigError{Field: "worker_count", Value: workers, Reason: "must be > 0"}
	}
	if increments <= 0 {
		return &ConfigError{Field: "increments_per_worker", Value: increments, Reason: "must be > 0"}
	}
	if int64(increments) > math.MaxInt64/int64(workers) {
		return &ConfigError{Field: "increments_per_worker", Value: increments, Reason: "expected value overflows int64"}
	}
	return nil
}
