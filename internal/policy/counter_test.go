package policy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/racelab/internal/testutil"
)

func TestNewCounter_StartsAtZero(t *testing.T) {
	for _, p := range All() {
		t.Run(p.String(), func(t *testing.T) {
			c := NewCounter(p)
			assert.Equal(t, int64(0), c.Load())
			assert.Equal(t, p, c.Policy())
		})
	}
}

func TestCounter_SingleGoroutineIsExact(t *testing.T) {
	for _, p := range All() {
		t.Run(p.String(), func(t *testing.T) {
			c := NewCounter(p)
			for i := 0; i < 1000; i++ {
				c.Increment()
			}
			assert.Equal(t, int64(1000), c.Load())
		})
	}
}

func TestNewCounter_InvalidPolicyPanics(t *testing.T) {
	assert.Panics(t, func() { NewCounter(Policy(42)) })
}

func TestAtomicCounter_Concurrent(t *testing.T) {
	c := NewCounter(Atomic)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10_000; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(80_000), c.Load())
}

func TestVisibleCounter_ConcurrentNeverExceeds(t *testing.T) {
	c := NewCounter(VisibilityOnly)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50_000; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	got := c.Load()
	assert.GreaterOrEqual(t, got, int64(0))
	assert.LessOrEqual(t, got, int64(200_000))
}

func TestPlainCounter_ConcurrentNeverExceeds(t *testing.T) {
	testutil.SkipIfRacing(t)

	c := NewCounter(Plain)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50_000; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	got := c.Load()
	assert.GreaterOrEqual(t, got, int64(0))
	assert.LessOrEqual(t, got, int64(200_000))
}
