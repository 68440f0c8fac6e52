package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racelab/internal/store"
)

// recordRace records one atomic race run and returns its run ID.
func recordRace(t *testing.T, db string, trials string) string {
	t.Helper()

	out, _, err := execute(t, "race",
		"--policy", "atomic", "--workers", "2", "--increments", "100", "--trials", trials,
		"--db", db, "--format", "json",
	)
	require.NoError(t, err)

	var report RaceReport
	decodeResponse(t, out, &report)
	require.NotEmpty(t, report.RunID)
	return report.RunID
}

func TestHistoryCommand_RequiresDB(t *testing.T) {
	_, _, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestHistoryCommand_MissingDatabase(t *testing.T) {
	out, _, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "nope.db"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestHistoryCommand_ListsRunsAndSummary(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	first := recordRace(t, db, "2")
	second := recordRace(t, db, "3")

	out, _, err := execute(t, "history", "--db", db, "--format", "json")
	require.NoError(t, err)

	var report HistoryReport
	decodeResponse(t, out, &report)
	require.Len(t, report.Runs, 2)
	ids := []string{report.Runs[0].ID, report.Runs[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)

	assert.Equal(t, []store.PolicyStats{{Policy: "atomic", RaceTrials: 5}}, report.Summary)
}

func TestHistoryCommand_Limit(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	recordRace(t, db, "1")
	recordRace(t, db, "1")

	out, _, err := execute(t, "history", "--db", db, "--limit", "1", "--format", "json")
	require.NoError(t, err)

	var report HistoryReport
	decodeResponse(t, out, &report)
	assert.Len(t, report.Runs, 1)
}

func TestHistoryCommand_Text(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	runID := recordRace(t, db, "1")

	out, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)

	assert.Contains(t, out, runID)
	assert.Contains(t, out, "RACE TRIALS LOST")
	assert.Contains(t, out, "0/1")
}

func TestHistoryCommand_RunDetail(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	runID := recordRace(t, db, "2")

	out, _, err := execute(t, "history", "--db", db, "--run", runID, "--format", "json")
	require.NoError(t, err)

	var detail RunDetail
	decodeResponse(t, out, &detail)
	assert.Equal(t, runID, detail.Run.ID)
	require.Len(t, detail.Trials, 2)
	assert.Equal(t, int64(1), detail.Trials[0].Seq)

	out, _, err = execute(t, "history", "--db", db, "--run", runID)
	require.NoError(t, err)
	assert.Contains(t, out, "trial 2: exact")
}

func TestHistoryCommand_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	recordRace(t, db, "1")

	out, _, err := execute(t, "history", "--db", db, "--run", "no-such-run", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestHistoryCommand_EmptyLedger(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}
