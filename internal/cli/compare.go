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

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	Kind       string
	Workers    int
	Increments int
	DelayMS    int
	TimeoutMS  int
	IntervalMS int
	Trials     int
	Database   string
}

// CompareRow summarizes every trial of one policy.
type CompareRow struct {
	Policy policy.Policy `json:"policy"`
	RunID  string        `json:"run_id,omitempty"`
	Trials int           `json:"trials"`

	// Race
	LostTrials int   `json:"lost_trials,omitempty"`
	MaxLost    int64 `json:"max_lost,omitempty"`
	MinFinal   int64 `json:"min_final,omitempty"`
	Expected   int64 `json:"expected,omitempty"`

	// Signal
	ObservedTrials int    `json:"observed_trials,omitempty"`
	MaxLatencyMS   *int64 `json:"max_latency_ms,omitempty"`
}

// CompareReport is the output of the compare command.
type CompareReport struct {
	Kind harness.Kind `json:"kind"`
	Rows []CompareRow `json:"rows"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run the same demonstration under every policy",
		Long: `Run the race (or signal) demonstration once per policy with identical
parameters and print the outcomes side by side.

Examples:
  racelab compare
  racelab compare --trials 5 --increments 1000000
  racelab compare --kind signal --delay 100 --timeout 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", string(harness.KindRace), "demonstration to compare (race|signal)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 2, "number of workers (race)")
	cmd.Flags().IntVar(&opts.Increments, "increments", 10_000_000, "increments per worker (race)")
	cmd.Flags().IntVar(&opts.DelayMS, "delay", 1000, "milliseconds before the flag is set (signal)")
	cmd.Flags().IntVar(&opts.TimeoutMS, "timeout", 500, "milliseconds to wait after the flag is set (signal)")
	cmd.Flags().IntVar(&opts.IntervalMS, "interval", int(harness.DefaultPollInterval/time.Millisecond), "milliseconds between polls (signal)")
	cmd.Flags().IntVar(&opts.Trials, "trials", 3, "trials per policy")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record trials in this SQLite ledger")

	return cmd
}

func runCompare(opts *CompareOptions, cmd *cobra.Command) error {
	kind := harness.Kind(opts.Kind)
	if kind != harness.KindRace && kind != harness.KindSignal {
		f := newFormatter(opts.RootOptions, cmd)
		return f.Fail("invalid configuration", &harness.ConfigError{
			Field:  "kind",
			Value:  opts.Kind,
			Reason: "must be race or signal",
		})
	}

	report := &CompareReport{Kind: kind, Rows: make([]CompareRow, 0, len(policy.All()))}
	for _, p := range policy.All() {
		scenario := opts.scenario(kind, p)
		result, runID, err := runAdHoc(cmd, opts.RootOptions, opts.Database, scenario)
		if err != nil {
			return err
		}
		row := summarize(p, result.Trials)
		row.RunID = runID
		report.Rows = append(report.Rows, row)
	}

	return newFormatter(opts.RootOptions, cmd).Success(report)
}

func (opts *CompareOptions) scenario(kind harness.Kind, p policy.Policy) *harness.Scenario {
	s := &harness.Scenario{
		Name:        fmt.Sprintf("compare_%s", p),
		Description: "policy comparison from the command line",
		Kind:        kind,
		Policy:      p.String(),
		Trials:      opts.Trials,
	}
	if kind == harness.KindRace {
		s.Race = &harness.RaceParams{Workers: opts.Workers, Increments: opts.Increments}
	} else {
		s.Signal = &harness.SignalParams{
			SignalDelayMS:  opts.DelayMS,
			PollTimeoutMS:  opts.TimeoutMS,
			PollIntervalMS: opts.IntervalMS,
		}
	}
	return s
}

// summarize folds a policy's trials into one row.
func summarize(p policy.Policy, trials []harness.Trial) CompareRow {
	row := CompareRow{Policy: p, Trials: len(trials)}
	for i, trial := range trials {
		if res := trial.Race; res != nil {
			row.Expected = res.ExpectedValue
			if i == 0 || res.FinalValue < row.MinFinal {
				row.MinFinal = res.FinalValue
			}
			if res.LostUpdates {
				row.LostTrials++
			}
			row.MaxLost = max(row.MaxLost, res.LostCount)
		}
		if res := trial.Signal; res != nil && res.Observed {
			row.ObservedTrials++
			if row.MaxLatencyMS == nil || *res.LatencyMS > *row.MaxLatencyMS {
				v := *res.LatencyMS
				row.MaxLatencyMS = &v
			}
		}
	}
	return row
}

func (r *CompareReport) renderText(w io.Writer, p *message.Printer) {
	if r.Kind == harness.KindRace {
		fmt.Fprintf(w, "%-16s %-12s %-14s %s\n", "POLICY", "LOST TRIALS", "MOST LOST", "WORST FINAL")
		for _, row := range r.Rows {
			fmt.Fprintf(w, "%-16s %-12s %-14s %s\n",
				row.Policy,
				fmt.Sprintf("%d/%d", row.LostTrials, row.Trials),
				p.Sprintf("%d", row.MaxLost),
				p.Sprintf("%d of %d", row.MinFinal, row.Expected))
		}
		return
	}

	fmt.Fprintf(w, "%-16s %-12s %s\n", "POLICY", "OBSERVED", "WORST LATENCY")
	for _, row := range r.Rows {
		latency := "-"
		if row.MaxLatencyMS != nil {
			latency = p.Sprintf("%dms", *row.MaxLatencyMS)
		}
		fmt.Fprintf(w, "%-16s %-12s %s\n",
			row.Policy, fmt.Sprintf("%d/%d", row.ObservedTrials, row.Trials), latency)
	}
}
