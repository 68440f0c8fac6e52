package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/racelab/internal/testutil"
)

// createTestStore opens a fresh ledger in a temp dir with deterministic run IDs.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path, WithIDGenerator(testutil.NewFixedIDGenerator(ids...)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func int64Ptr(v int64) *int64 { return &v }
