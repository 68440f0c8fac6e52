package policy

import "sync/atomic"

// Flag is a one-shot stop signal: created false, set true once, never reset.
type Flag interface {
	// Set moves the flag to true.
	Set()
	// IsSet polls the flag using the policy's primitive.
	IsSet() bool
	// Policy reports the policy backing the flag.
	Policy() Policy
}

// NewFlag returns an unset flag backed by p.
// Panics on an invalid policy; callers validate configuration first.
func NewFlag(p Policy) Flag {
	switch p {
	case Plain:
		return &plainFlag{}
	case VisibilityOnly:
		return &visibleFlag{}
	case Atomic:
		return &atomicFlag{}
	default:
		panic("policy: NewFlag with " + p.String())
	}
}

type plainFlag struct {
	v bool
}

func (f *plainFlag) Set()           { f.v = true }
func (f *plainFlag) IsSet() bool    { return f.v }
func (f *plainFlag) Policy() Policy { return Plain }

// visibleFlag stores the bool as an int32 so each access can go through
// atomic Load/Store.
type visibleFlag struct {
	v int32
}

func (f *visibleFlag) Set()           { atomic.StoreInt32(&f.v, 1) }
func (f *visibleFlag) IsSet() bool    { return atomic.LoadInt32(&f.v) != 0 }
func (f *visibleFlag) Policy() Policy { return VisibilityOnly }

type atomicFlag struct {
	v atomic.Bool
}

func (f *atomicFlag) Set()           { f.v.Store(true) }
func (f *atomicFlag) IsSet() bool    { return f.v.Load() }
func (f *atomicFlag) Policy() Policy { return Atomic }
