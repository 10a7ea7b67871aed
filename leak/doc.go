// Package leak provides the public API of the Pure-Go leak detector
// interposition runtime.
//
// The runtime sits between a traced program's heap/thread API surface
// and a leak-tracking engine: every allocate/resize/free call, every
// thread creation and termination, and process exit itself pass
// through this layer, which delivers the events to the engine with
// the ordering guarantees leak analysis needs. The engine — what is
// reachable, what gets reported — is a pluggable collaborator; a
// reference in-memory tracker ships with the module.
//
// # Quick start
//
//	package main
//
//	import "github.com/kolkov/leakdetector/leak"
//
//	func main() {
//		leak.Init()
//
//		p := leak.Malloc(64)        // tracked
//		_ = leak.Malloc(128)        // tracked, never freed: a leak
//		leak.Free(p)
//
//		leak.Exit(0) // exits with the leak exit code, not 0
//	}
//
// # Configuration
//
// Options come from the LEAKDETECTOR_OPTIONS environment string
// ("exitcode=23,verbosity=1") optionally overlaid by a TOML file named
// in LEAKDETECTOR_CONFIG. See the options package for the full set.
//
// # Threads
//
// Thread lifecycle runs through [Create], [Join] and [ThreadExit].
// A created thread's identity is registered with the engine before
// the thread's first user instruction, and the engine's finish
// notification is delivered after all per-thread destructors
// registered with [RegisterThreadDestructor] have run.
package leak
