// Package policy provides the shared values that racelab workers contend on.
//
// Every shared value is backed by one of three visibility policies:
//
//   - Plain: ordinary memory. No visibility or atomicity guarantee. Concurrent
//     use is a data race by construction.
//   - VisibilityOnly: each individual read and write goes to memory through
//     sync/atomic Load/Store, but an increment is still a separate load and
//     store, so concurrent increments can be lost. This is the behavior of a
//     C++ volatile variable.
//   - Atomic: read-modify-write is indivisible and visible to all goroutines.
//
// The Plain and VisibilityOnly implementations are deliberately broken. They
// exist to be contrasted with Atomic and must not be "fixed".
//
// # Usage
//
//	c := policy.NewCounter(policy.Atomic)
//	c.Increment()
//	n := c.Load()
//
//	f := policy.NewFlag(policy.VisibilityOnly)
//	f.Set()
//	stopped := f.IsSet()
package policy
