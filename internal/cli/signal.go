package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/roach88/racelab/internal/harness"
	"github.com/roach88/racelab/internal/policy"
)

// msRound is the display resolution for durations.
const msRound = time.Millisecond

// SignalOptions holds flags for the signal command.
type SignalOptions struct {
	*RootOptions
	Policy     policy.Policy
	DelayMS    int
	TimeoutMS  int
	IntervalMS int
	Trials     int
	Database   string
}

// SignalReport is the output of the signal command.
type SignalReport struct {
	RunID      string          `json:"run_id,omitempty"`
	Policy     policy.Policy   `json:"policy"`
	DelayMS    int             `json:"signal_delay_ms"`
	TimeoutMS  int             `json:"poll_timeout_ms"`
	IntervalMS int             `json:"poll_interval_ms"`
	Trials     []harness.Trial `json:"trials"`
}

// NewSignalCommand creates the signal command.
func NewSignalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignalOptions{RootOptions: rootOpts, Policy: policy.Atomic}

	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Measure how long a worker takes to notice a stop flag",
		Long: `Start a worker that polls a stop flag and does one unit of work per
poll, set the flag after a delay, and wait a bounded time for the worker to
stop.

Not noticing within the timeout is a reported outcome: under plain the flag
store is allowed to never become visible. The worker is then abandoned.

Exit codes:
  0 - Trials completed, observed or not
  1 - The worker faulted
  2 - Invalid configuration

Examples:
  racelab signal
  racelab signal --policy plain --delay 200 --timeout 500 --trials 10
  racelab signal --policy volatile --interval 10 --db ./racelab.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignal(opts, cmd)
		},
	}

	cmd.Flags().Var(&opts.Policy, "policy", fmt.Sprintf("visibility policy %v", policy.Names()))
	cmd.Flags().IntVar(&opts.DelayMS, "delay", 1000, "milliseconds before the flag is set")
	cmd.Flags().IntVar(&opts.TimeoutMS, "timeout", 500, "milliseconds to wait for the worker after the flag is set")
	cmd.Flags().IntVar(&opts.IntervalMS, "interval", int(harness.DefaultPollInterval/time.Millisecond), "milliseconds between polls")
	cmd.Flags().IntVar(&opts.Trials, "trials", 1, "number of independent trials")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record trials in this SQLite ledger")

	return cmd
}

func runSignal(opts *SignalOptions, cmd *cobra.Command) error {
	if opts.IntervalMS <= 0 {
		f := newFormatter(opts.RootOptions, cmd)
		return f.Fail("invalid configuration", &harness.ConfigError{
			Field:  "poll_interval",
			Value:  opts.IntervalMS,
			Reason: "must be > 0",
		})
	}

	scenario := &harness.Scenario{
		Name:        "signal",
		Description: "ad-hoc signal from the command line",
		Kind:        harness.KindSignal,
		Policy:      opts.Policy.String(),
		Trials:      opts.Trials,
		Signal: &harness.SignalParams{
			SignalDelayMS:  opts.DelayMS,
			PollTimeoutMS:  opts.TimeoutMS,
			PollIntervalMS: opts.IntervalMS,
		},
	}

	result, runID, err := runAdHoc(cmd, opts.RootOptions, opts.Database, scenario)
	if err != nil {
		return err
	}

	return newFormatter(opts.RootOptions, cmd).Success(&SignalReport{
		RunID:      runID,
		Policy:     opts.Policy,
		DelayMS:    opts.DelayMS,
		TimeoutMS:  opts.TimeoutMS,
		IntervalMS: opts.IntervalMS,
		Trials:     result.Trials,
	})
}

func (r *SignalReport) renderText(w io.Writer, p *message.Printer) {
	p.Fprintf(w, "signal %s: flag set after %dms, timeout %dms, poll every %dms\n",
		r.Policy, r.DelayMS, r.TimeoutMS, r.IntervalMS)
	for _, trial := range r.Trials {
		res := trial.Signal
		if res.Observed {
			p.Fprintf(w, "  trial %d: observed after %dms (%d work units)\n",
				trial.Seq, *res.LatencyMS, res.Worker.Iterations)
		} else {
			p.Fprintf(w, "  trial %d: not observed within %dms, worker abandoned\n",
				trial.Seq, r.TimeoutMS)
		}
	}
	if r.RunID != "" {
		p.Fprintf(w, "recorded as run %s\n", r.RunID)
	}
}
