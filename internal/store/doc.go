// Package store records harness trials in a SQLite ledger.
//
// A run is one scenario execution (or one ad-hoc CLI invocation) and owns
// its trials:
//   - runs: id (UUIDv7), scenario, kind, policy, params JSON, started_at
//   - trials: (run_id, seq), outcome columns, and the full result JSON
//
// Trials are ordered by their logical seq, never by wall time. The outcome
// columns duplicate what the result JSON holds so PolicySummary can
// aggregate in SQL.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The package does not depend on the harness: callers flatten harness
// results into TrialRecord themselves.
package store
