package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// FixedIDGenerator returns predetermined run IDs for tests.
//
// Once the listed IDs are exhausted it falls back to "test-run-N", so a test
// that records more runs than it listed still gets distinct, stable IDs.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
//
// Implements store.IDGenerator.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if g.idx <= len(g.ids) {
		return g.ids[g.idx-1]
	}
	return fmt.Sprintf("test-run-%d", g.idx)
}

// WriteScenario writes a scenario file named name into dir and returns its path.
func WriteScenario(t testing.TB, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// SkipIfRacing skips tests that deliberately race on plain memory.
// The race detector reports those accesses, which is the point of them.
func SkipIfRacing(t testing.TB) {
	t.Helper()
	if RaceEnabled {
		t.Skip("deliberate data race; skipped under -race")
	}
}
