// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package leak

import (
	"os"

	"github.com/kolkov/leakdetector/internal/leak/thread"
)

// Malloc allocates size bytes through the dispatcher. Returns 0 on
// exhaustion.
func Malloc(size int) uintptr {
	return Default().Dispatch.Malloc(size)
}

// Calloc allocates n*size zero-filled bytes, rejecting overflow.
func Calloc(n, size int) uintptr {
	return Default().Dispatch.Calloc(n, size)
}

// Realloc resizes ptr preserving the leading min(old, new) bytes.
func Realloc(ptr uintptr, size int) uintptr {
	return Default().Dispatch.Realloc(ptr, size)
}

// Free releases ptr. A zero ptr is a no-op.
func Free(ptr uintptr) {
	Default().Dispatch.Free(ptr)
}

// Memalign allocates size bytes aligned to align (a power of two).
func Memalign(align uintptr, size int) uintptr {
	return Default().Dispatch.Memalign(align, size)
}

// UsableSize returns the tracked bookkeeping size of ptr, 0 for
// unknown pointers.
func UsableSize(ptr uintptr) int {
	return Default().Dispatch.UsableSize(ptr)
}

// Bytes exposes the live block at ptr as a writable slice.
func Bytes(ptr uintptr) []byte {
	return Default().Dispatch.Bytes(ptr)
}

// Create starts a tracked thread running fn(arg). The thread's
// identity is registered with the tracking engine before fn runs.
func Create(attr *thread.Attr, fn thread.Callback, arg any) (*thread.Thread, error) {
	return Default().Threads.Create(attr, fn, arg)
}

// Join waits for a tracked thread and returns fn's result.
func Join(t *thread.Thread) (any, error) {
	return Default().Threads.Join(t)
}

// ThreadExit terminates the calling tracked thread immediately,
// delivering the engine's finish notification before unwinding.
func ThreadExit(result any) {
	Default().Threads.Exit(result)
}

// RegisterThreadDestructor adds a per-thread destructor for the
// calling tracked thread.
func RegisterThreadDestructor(fn func()) error {
	return Default().Threads.RegisterDestructor(fn)
}

// DisableTracking marks the calling goroutine's dynamic extent as
// untracked. The returned restore func must be deferred.
func DisableTracking() func() {
	return Default().Guard.Disable()
}

// AtExit registers an exit callback, excluded from tracking noise.
func AtExit(fn func()) int {
	return Default().ExitAdapt.AtExit(fn)
}

// Exit terminates the process. A successful status is substituted
// with the configured leak exit code when unreported leaks remain.
func Exit(status int) {
	r := Default()
	if r.Tracker != nil {
		r.Tracker.Report(os.Stderr)
	}
	r.ExitAdapt.Exit(status)
}

// CheckLeaks writes a leak report to stderr and returns the number of
// leaked chunks. Only available with the reference tracker; custom
// engines report on their own terms.
func CheckLeaks() int {
	r := Default()
	if r.Tracker == nil {
		return 0
	}
	return r.Tracker.Report(os.Stderr)
}
