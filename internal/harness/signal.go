package harness

import (
	"io"
	"log/slog"
	"time"

	"github.com/roach88/racelab/internal/policy"
)

// DefaultPollInterval is the sleep between flag polls.
const DefaultPollInterval = 100 * time.Millisecond

// SignalHarness starts one worker that polls a stop flag, sets the flag
// after a delay, and reports whether and when the worker noticed.
type SignalHarness struct {
	logger *slog.Logger

	// PollInterval is how long the worker sleeps between polls.
	PollInterval time.Duration

	// Work is the unit of observable work done on each poll that reads
	// false. Nil logs the iteration at debug level.
	Work func(iteration int64)
}

// NewSignalHarness creates a SignalHarness polling every DefaultPollInterval.
// A nil logger discards output.
func NewSignalHarness(logger *slog.Logger) *SignalHarness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SignalHarness{
		logger:       logger,
		PollInterval: DefaultPollInterval,
	}
}

type workerStop struct {
	at         time.Time
	iterations int64
}

// Run executes one signal trial.
//
// The controller sleeps signalDelayMS, sets the flag, then waits at most
// pollTimeoutMS for the worker to stop. If the wait expires the worker is
// abandoned, not killed, and the result reports Observed=false. That is a
// normal outcome; only a worker fault is an error.
func (h *SignalHarness) Run(p policy.Policy, signalDelayMS, pollTimeoutMS int) (*SignalResult, error) {
	if err := h.validate(p, signalDelayMS, pollTimeoutMS); err != nil {
		return nil, err
	}

	flag := policy.NewFlag(p)
	interval := h.PollInterval
	work := h.Work
	if work == nil {
		work = func(iteration int64) {
			h.logger.Debug("working", "policy", p, "iteration", iteration)
		}
	}

	// Both channels are buffered so an abandoned worker can still exit.
	stopped := make(chan workerStop, 1)
	faulted := make(chan *FaultError, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				faulted <- recoverFault(0, r)
			}
		}()

		var n int64
		for !flag.IsSet() {
			work(n)
			n++
			time.Sleep(interval)
		}
		stopped <- workerStop{at: time.Now(), iterations: n}
	}()

	h.logger.Debug("signal worker armed", "policy", p, "delay_ms", signalDelayMS)
	time.Sleep(time.Duration(signalDelayMS) * time.Millisecond)

	signaledAt := time.Now()
	flag.Set()
	h.logger.Debug("stop flag set", "policy", p)

	timer := time.NewTimer(time.Duration(pollTimeoutMS) * time.Millisecond)
	defer timer.Stop()

	result := &SignalResult{
		Policy:     p,
		SignaledAt: signaledAt,
		Worker:     WorkerResult{ID: 0},
	}

	select {
	case s := <-stopped:
		h.observe(result, s)
	case fault := <-faulted:
		h.logger.Error("signal worker faulted", "error", fault.Cause)
		return nil, fault
	case <-timer.C:
		// Prefer anything that landed at the same instant as the timeout.
		select {
		case s := <-stopped:
			h.observe(result, s)
		case fault := <-faulted:
			return nil, fault
		default:
			h.logger.Warn("stop flag not observed before timeout",
				"policy", p,
				"timeout_ms", pollTimeoutMS,
			)
		}
	}

	return result, nil
}

func (h *SignalHarness) observe(result *SignalResult, s workerStop) {
	latency := s.at.Sub(result.SignaledAt)
	if latency < 0 {
		latency = 0
	}
	ms := latency.Milliseconds()

	result.Observed = true
	result.Latency = latency
	result.LatencyMS = &ms
	result.Worker.Iterations = s.iterations
	result.Worker.StoppedAt = s.at

	h.logger.Info("stop flag observed",
		"policy", result.Policy,
		"latency_ms", ms,
		"iterations", s.iterations,
	)
}

func (h *SignalHarness) validate(p policy.Policy, signalDelayMS, pollTimeoutMS int) error {
	if !p.Valid() {
		return &ConfigError{Field: "policy", Value: p, Reason: "unknown policy"}
	}
	if signalDelayMS < 0 {
		return &ConfigError{Field: "signal_delay_ms", Value: signalDelayMS, Reason: "must be >= 0"}
	}
	if pollTimeoutMS < 0 {
		return &ConfigError{Field: "poll_timeout_ms", Value: pollTimeoutMS, Reason: "must be >= 0"}
	}
	if h.PollInterval <= 0 {
		return &ConfigError{Field: "poll_interval", Value: h.PollInterval, Reason: "must be > 0"}
	}
	return nil
}
