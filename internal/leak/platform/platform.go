// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platform resolves the capability descriptor for the running
// platform.
//
// The original interceptor layer selects its entry-point surface with a
// forest of compile-time capability macros (one per optional libc
// symbol). Here the same information is a single Capabilities value
// resolved once at startup; the interposition registry consumes it to
// decide which entry points exist, and the rest of the runtime reads
// its constants (destructor iterations, stack floor, alignment limit)
// instead of duplicating platform knowledge.
package platform

// Limits shared by the allocation and thread paths.
const (
	// DestructorIterations is the number of rounds the per-thread
	// destructor runner makes before giving up on values re-registered
	// during destruction. Matches PTHREAD_DESTRUCTOR_ITERATIONS on
	// mainstream libc implementations.
	DestructorIterations = 4

	// MinThreadStackSize is the floor applied to a caller-supplied
	// thread stack size so the tracking runtime always has room to
	// operate on the new thread.
	MinThreadStackSize = 64 << 10

	// PageSize is the assumed page granularity for the page-aligned
	// allocation forms (valloc, pvalloc).
	PageSize = 4096

	// MaxAlignment is the largest alignment the aligned allocation
	// forms accept. Requests above it fail rather than round.
	MaxAlignment = 1 << 16

	// wordBits is the width of the native machine word: 32 or 64.
	wordBits = 32 << (^uint(0) >> 63)

	// MaxAllocSize is the largest single request the dispatcher will
	// forward; anything bigger is treated as allocation exhaustion.
	// 1<<40 on 64-bit targets, 1<<30 on 32-bit so the bound stays
	// representable in int.
	MaxAllocSize = 1 << (30 + 10*((wordBits-32)/32))
)

// Capabilities describes which optional entry points the platform
// carries. The interposition registry binds exactly one handler per
// enabled capability and nothing for disabled ones.
type Capabilities struct {
	AlignedAlloc bool // aligned_alloc / memalign family
	Pvalloc      bool // pvalloc page-rounding form
	Cfree        bool // legacy cfree alias for free
	MallinfoStub bool // mallinfo/mallopt/mcheck/mprobe stubs
	ThreadExit   bool // direct thread-exit primitive
	AtFork       bool // fork-handler registration
	Strerror     bool // error-string lookup
}

// Default returns the capability descriptor for the host platform.
//
// The Go rendering has no libc variance to probe, so every optional
// surface is available; tests construct narrower descriptors by hand to
// exercise the registry's gating.
func Default() Capabilities {
	return Capabilities{
		AlignedAlloc: true,
		Pvalloc:      true,
		Cfree:        true,
		MallinfoStub: true,
		ThreadExit:   true,
		AtFork:       true,
		Strerror:     true,
	}
}
