// Package thread implements the thread-lifecycle coordinator.
//
// The coordinator guarantees two orderings the tracking engine relies
// on, neither of which the platform gives for free:
//
//   - Identity-before-user-code: a created thread's identity is
//     assigned by the engine, and observed by the new thread, strictly
//     before the first user instruction runs on it. Enforced by the
//     creation handshake: the new thread's trampoline spins
//     (cooperative yield, no blocking syscall) on an atomic identity
//     slot the creator publishes into after the create primitive
//     returns.
//
//   - Finish-notification-last: the engine's thread-finish event fires
//     after all other per-thread destructors have run. Destructor
//     order is otherwise unspecified, so the coordinator's own
//     finalizer re-registers itself on every destructor round,
//     burning down a countdown that starts at the platform's
//     destructor-iteration maximum and firing only on the floor.
//
// The handshake record is heap-owned by the created thread (the
// owned-storage variant), so the creator never waits for the slot to
// be consumed; it publishes and returns. The identity slot is an
// atomic.Int32 — Go atomics are sequentially consistent, stronger
// than the acquire/release minimum the handshake needs.
//
// Threads are goroutines locked to an OS thread for the duration of
// the user callback, so the engine's ThreadStart receives a real
// kernel task id where the platform exposes one.
package thread
