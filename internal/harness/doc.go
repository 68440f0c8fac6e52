// Package harness runs the racelab demonstrations and checks their outcomes.
//
// Two harnesses make memory-visibility behavior observable:
//
//   - RaceHarness spawns N workers that each increment a shared counter a
//     fixed number of times under a chosen policy, joins them, and reports
//     the final value against the expected product. Under policy.Atomic no
//     update is ever lost; under policy.Plain and policy.VisibilityOnly
//     updates may be lost but the final value never exceeds the product.
//
//   - SignalHarness starts one worker polling a stop flag, sets the flag
//     after a delay, and waits a bounded time for the worker to notice.
//     Not noticing in time is a normal, reported outcome.
//
// Both construct fresh shared state per call: repeated runs are independent
// trials. Bad parameters fail with ErrInvalidConfiguration before any
// goroutine starts; a worker panic fails with ErrInternalFault.
//
// # Scenario Format
//
// Scenarios batch trials and state what must hold across them:
//
//	name: atomic_counter_exact
//	description: "Atomic increments are never lost"
//	kind: race
//	policy: atomic
//	trials: 3
//	race:
//	  workers: 2
//	  increments: 10000000
//	assertions:
//	  - type: exact_count
//	  - type: no_lost_updates
//
// Signal scenarios use a signal block instead:
//
//	signal:
//	  signal_delay_ms: 1000
//	  poll_timeout_ms: 500
//	  poll_interval_ms: 100
//
// Files are decoded strictly (unknown fields are errors), checked by Go
// validation, then unified with the embedded CUE schema (schema.cue).
//
// # Assertion Types
//
//   - within_bounds: 0 <= final <= expected in every race trial
//   - exact_count: final == expected in every race trial
//   - lost_updates_seen: at least one race trial lost updates
//   - no_lost_updates: no race trial lost updates
//   - observed: every signal trial observed the flag
//   - latency_below: every observed signal trial has latency_ms < max_ms
//
// # Usage
//
//	scenario, err := harness.LoadScenario("scenarios/atomic.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
