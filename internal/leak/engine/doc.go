// Package engine defines the tracking-engine boundary of the
// interposition layer and ships a reference in-memory tracker.
//
// The interposition layer (dispatcher, thread coordinator, exit
// adapter) never decides what is or is not a leak; it only delivers
// events — allocations, releases, root regions, thread lifecycle — to
// an Engine with the ordering guarantees the spec of each component
// states. Reachability analysis proper is out of scope for this module.
//
// # The Engine interface
//
// Engine is the exact consumed surface: initialization state, chunk
// tracking, root regions, thread identity, and the leak query the exit
// adapter needs. Any real detector can be plugged in; everything in
// this repository is written against the interface.
//
// # The reference Tracker
//
// Tracker is a deliberately simple Engine used by the examples and the
// test suite: a mutex-guarded chunk registry plus root-region and
// thread tables. Its leak rule is conservative slice of the real
// thing: a live chunk leaks unless it is suppressed (allocated under
// the reentrancy guard) or its address falls inside a registered root
// region.
package engine
