// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

// MainThreadID is the identity of the initial thread. ThreadCreate
// never returns it for a created thread.
const MainThreadID int32 = 0

// AllocContext accompanies every allocate/resize event.
type AllocContext struct {
	// Stack is the depot hash of the captured return-address chain,
	// 0 when capture was unavailable.
	Stack uint64

	// Suppressed marks contexts captured inside a reentrancy-disabled
	// region. The engine must exclude such chunks from leak reporting.
	Suppressed bool
}

// Engine is the consumed interface of the external leak detector.
//
// The interposition layer guarantees per-call ordering (thread identity
// published before first user instruction, thread finish delivered
// last among per-thread cleanup); the engine provides its own internal
// synchronization for everything else.
type Engine interface {
	// IsInitialized reports whether one-time setup has completed.
	// While false, the dispatcher routes to the bootstrap allocator.
	IsInitialized() bool

	// Initialize performs one-time setup. Idempotent; the dispatcher
	// calls it on first post-bootstrap use.
	Initialize()

	// TrackAllocate records a new chunk.
	TrackAllocate(ptr uintptr, size int, ctx AllocContext)

	// TrackResize moves a chunk's registration to a new address/size.
	// oldPtr and newPtr may be equal.
	TrackResize(oldPtr, newPtr uintptr, newSize int, ctx AllocContext)

	// TrackRelease forgets a chunk. Unknown pointers are ignored.
	TrackRelease(ptr uintptr)

	// UsableSize returns the bookkeeping size of a tracked chunk,
	// 0 for unknown pointers.
	UsableSize(ptr uintptr) int

	// RegisterRootRegion marks [addr, addr+size) always-reachable.
	RegisterRootRegion(addr uintptr, size int)

	// UnregisterRootRegion removes a previously registered region.
	UnregisterRootRegion(addr uintptr, size int)

	// ThreadCreate assigns an identity to a thread about to start.
	// Called on the creating thread; the returned id is never
	// MainThreadID.
	ThreadCreate(creator int32, detached bool) int32

	// ThreadStart binds the identity to the running thread. Called on
	// the new thread before any user code.
	ThreadStart(tid int32, osID int)

	// ThreadFinish marks the calling thread's identity finished and
	// eligible for reuse.
	ThreadFinish()

	// HasUnreportedLeaks reports whether outstanding leaks exist at
	// the time of the call. Consulted by the process-exit adapter.
	HasUnreportedLeaks() bool
}
