package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/roach88/racelab/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string
}

// HistoryReport lists recorded runs and the per-policy summary.
type HistoryReport struct {
	Runs    []store.Run         `json:"runs"`
	Summary []store.PolicyStats `json:"summary"`
}

// RunDetail is one recorded run with its trials.
type RunDetail struct {
	Run    store.Run           `json:"run"`
	Trials []store.TrialRecord `json:"trials"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show runs recorded in a ledger",
		Long: `List the most recent runs recorded with --db, and how often each policy
lost updates or missed the stop flag across every recorded trial.

With --run, show the trials of one run instead.

Examples:
  racelab history --db ./racelab.db
  racelab history --db ./racelab.db --limit 5 --format json
  racelab history --db ./racelab.db --run 01928c3e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the trials of this run")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	// Opening would create an empty ledger; a typo should be an error.
	if _, err := os.Stat(opts.Database); err != nil {
		return f.FailWithCode(ErrCodeNotFound, ExitCommandError,
			fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.FailWithCode(ErrCodeStore, ExitCommandError, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing ledger", "error", closeErr)
		}
	}()

	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			return f.Fail("failed to read run", err)
		}
		trials, err := st.ReadTrials(ctx, run.ID)
		if err != nil {
			return f.FailWithCode(ErrCodeStore, ExitCommandError, "failed to read trials", err)
		}
		return f.Success(&RunDetail{Run: run, Trials: trials})
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return f.FailWithCode(ErrCodeStore, ExitCommandError, "failed to list runs", err)
	}
	summary, err := st.PolicySummary(ctx)
	if err != nil {
		return f.FailWithCode(ErrCodeStore, ExitCommandError, "failed to summarize", err)
	}

	return f.Success(&HistoryReport{Runs: runs, Summary: summary})
}

func (h *HistoryReport) renderText(w io.Writer, p *message.Printer) {
	if len(h.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-6s  %-16s  %s\n", "RUN", "SCENARIO", "KIND", "POLICY", "STARTED")
	for _, run := range h.Runs {
		fmt.Fprintf(w, "%-36s  %-20s  %-6s  %-16s  %s\n",
			run.ID, run.Scenario, run.Kind, run.Policy, run.StartedAt.Format(time.DateTime))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-16s  %-18s  %-12s  %s\n", "POLICY", "RACE TRIALS LOST", "MOST LOST", "SIGNALS MISSED")
	for _, s := range h.Summary {
		fmt.Fprintf(w, "%-16s  %-18s  %-12s  %s\n",
			s.Policy,
			p.Sprintf("%d/%d", s.LostTrials, s.RaceTrials),
			p.Sprintf("%d", s.MaxLost),
			p.Sprintf("%d/%d", s.NotObservedTrials, s.SignalTrials))
	}
}

func (d *RunDetail) renderText(w io.Writer, p *message.Printer) {
	fmt.Fprintf(w, "run %s: %s (%s, %s) started %s\n",
		d.Run.ID, d.Run.Scenario, d.Run.Kind, d.Run.Policy, d.Run.StartedAt.Format(time.DateTime))
	fmt.Fprintf(w, "params: %s\n", d.Run.Params)

	for _, t := range d.Trials {
		switch d.Run.Kind {
		case "race":
			if t.LostUpdates {
				p.Fprintf(w, "  trial %d: %d lost\n", t.Seq, t.LostCount)
			} else {
				p.Fprintf(w, "  trial %d: exact\n", t.Seq)
			}
		default:
			if t.Observed && t.LatencyMS != nil {
				p.Fprintf(w, "  trial %d: observed after %dms\n", t.Seq, *t.LatencyMS)
			} else {
				p.Fprintf(w, "  trial %d: not observed\n", t.Seq)
			}
		}
	}
}
