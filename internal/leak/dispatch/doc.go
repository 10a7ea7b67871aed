// Package dispatch implements the allocation-call dispatcher: the
// single choke point every interposed heap entry point funnels
// through.
//
// # Routing
//
// Each request resolves its route before any tracked work happens:
//
//  1. While the tracking engine's one-time setup is running, route to
//     the bootstrap arena. The setup itself may allocate (the
//     dynamic-symbol-resolution problem), and those allocations must
//     be invisible to leak analysis.
//  2. A resize/release/usable-size of a pointer the bootstrap arena
//     issued routes back to the arena, whatever the engine state, and
//     keeps the arena's root-region registrations in step.
//  3. Otherwise ensure the engine is initialized — the first call
//     through here triggers setup — and forward: allocate from the
//     backing heap, then report the event to the engine together with
//     a captured allocation context.
//
// # Entry-point surface
//
// The classic malloc family (malloc, calloc, realloc, reallocarray,
// free, cfree, memalign, aligned_alloc, posix_memalign, valloc,
// pvalloc, malloc_usable_size, plus the mallopt/mcheck/mallinfo
// stubs) lives in dispatch.go; the paired object-allocation operator
// family, which reduces to the same primitives but adds the fatal
// out-of-memory policy for its non-recoverable forms, lives in
// operators.go.
//
// # Failure policy
//
// Recoverable forms signal exhaustion with a zero address (or an errno
// status for posix_memalign). The non-recoverable operator forms never
// return zero: they log one line and terminate through an injectable
// die hook, since no exception machinery exists to unwind through
// foreign frames.
package dispatch
