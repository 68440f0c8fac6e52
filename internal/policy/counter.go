package policy

import "sync/atomic"

// Counter is a shared integer mutated concurrently by workers.
type Counter interface {
	// Increment adds one using the policy's primitive.
	Increment()
	// Load reads the current value using the policy's primitive.
	Load() int64
	// Policy reports the policy backing the counter.
	Policy() Policy
}

// NewCounter returns a zeroed counter backed by p.
// Panics on an invalid policy; callers validate configuration first.
func NewCounter(p Policy) Counter {
	switch p {
	case Plain:
		return &plainCounter{}
	case VisibilityOnly:
		return &visibleCounter{}
	case Atomic:
		return &atomicCounter{}
	default:
		panic("policy: NewCounter with " + p.String())
	}
}

type plainCounter struct {
	v int64
}

// Increment is a racy load, add, store.
func (c *plainCounter) Increment() { c.v++ }
func (c *plainCounter) Load() int64 { return c.v }
func (c *plainCounter) Policy() Policy { return Plain }

type visibleCounter struct {
	v int64
}

// Increment reads and writes through memory, but the two accesses are
// separate: another worker's store between them is overwritten.
func (c *visibleCounter) Increment() {
	n := atomic.LoadInt64(&c.v)
	atomic.StoreInt64(&c.v, n+1)
}

func (c *visibleCounter) Load() int64 { return atomic.LoadInt64(&c.v) }
func (c *visibleCounter) Policy() Policy { return VisibilityOnly }

type atomicCounter struct {
	v atomic.Int64
}

func (c *atomicCounter) Increment() { c.v.Add(1) }
func (c *atomicCounter) Load() int64 { return c.v.Load() }
func (c *atomicCounter) Policy() Policy { return Atomic }
