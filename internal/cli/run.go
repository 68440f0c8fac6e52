package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/roach88/racelab/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter   string // scenario filter (glob pattern)
	Update   bool   // regenerate golden files
	Database string
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string          `json:"name"`
	RunID  string          `json:"run_id,omitempty"`
	Pass   bool            `json:"pass"`
	Trials []harness.Trial `json:"trials,omitempty"`
	Errors []string        `json:"errors,omitempty"`
}

// RunSummary holds the overall result of a run command.
type RunSummary struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run scenario files and check their assertions",
		Long: `Run every YAML scenario in a directory and evaluate its assertions.

A scenario with a golden file at golden/<file>.golden next to it must also
match that file's snapshot of the plan and per-trial outcome classes.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  racelab run ./scenarios
  racelab run ./scenarios --filter "atomic_*"
  racelab run ./scenarios --update
  racelab run ./scenarios --db ./racelab.db --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record trials in this SQLite ledger")

	return cmd
}

func runScenarios(opts *RunOptions, scenariosDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if _, err := os.Stat(scenariosDir); err != nil {
		return f.FailWithCode(ErrCodeNotFound, ExitCommandError,
			fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return f.FailWithCode(ErrCodeGeneric, ExitCommandError, "failed to find scenarios", err)
	}

	rec, err := openRecorder(opts.Database, logger)
	if err != nil {
		return f.Fail("failed to open ledger", err)
	}
	defer func() {
		if closeErr := rec.Close(); closeErr != nil {
			logger.Error("error closing ledger", "error", closeErr)
		}
	}()

	summary := &RunSummary{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}

	ctx, cancel := interruptContext(cmd, logger)
	defer cancel()

	for _, file := range scenarioFiles {
		res := runScenarioFile(ctx, file, opts, rec, logger)
		summary.Scenarios = append(summary.Scenarios, res)
		if res.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	if summary.Failed > 0 {
		msg := fmt.Sprintf("%d scenario(s) failed", summary.Failed)
		if err := f.Failure(summary, ErrCodeScenarioFailed, msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return f.Success(summary)
}

// findScenarioFiles finds all YAML scenario files in a directory.
// The filter glob is matched against the file name without extension.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenarioFile loads, runs and checks one scenario file.
func runScenarioFile(ctx context.Context, file string, opts *RunOptions, rec *recorder, logger *slog.Logger) ScenarioResult {
	base := filepath.Base(file)

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   base,
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	runID, hook, err := rec.begin(ctx, scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("failed to record run: %v", err)},
		}
	}

	result, err := harness.Run(ctx, scenario,
		harness.WithLogger(logger),
		harness.WithTrialHook(hook),
	)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			RunID:  runID,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	res := ScenarioResult{
		Name:   scenario.Name,
		RunID:  runID,
		Pass:   result.Pass,
		Trials: result.Trials,
		Errors: result.Errors,
	}

	if err := checkGolden(file, scenario, result, opts.Update); err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, err.Error())
	}
	return res
}

// goldenFilePath returns the path to the golden file for a scenario file.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// checkGolden compares the run's snapshot with the scenario's golden file,
// or rewrites the file when update is set. No golden file means no check.
func checkGolden(scenarioFile string, scenario *harness.Scenario, result *harness.Result, update bool) error {
	goldenPath := goldenFilePath(scenarioFile)

	current, err := harness.NewSnapshot(scenario, result).Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(goldenPath, current, 0644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}

	if !bytes.Equal(golden, current) {
		return fmt.Errorf("snapshot does not match %s (run with --update to regenerate)", goldenPath)
	}
	return nil
}

func (s *RunSummary) renderText(w io.Writer, p *message.Printer) {
	if s.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	for _, res := range s.Scenarios {
		if res.Pass {
			p.Fprintf(w, "✓ %s (%d trials)\n", res.Name, len(res.Trials))
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", res.Name)
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  %s\n", strings.TrimRight(e, "\n"))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", s.Passed, s.Failed, s.Total)
	if s.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
