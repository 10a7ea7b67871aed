// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/tliron/commonlog"

	"github.com/kolkov/leakdetector/internal/leak/bootstrap"
	"github.com/kolkov/leakdetector/internal/leak/depot"
	"github.com/kolkov/leakdetector/internal/leak/engine"
	"github.com/kolkov/leakdetector/internal/leak/guard"
	"github.com/kolkov/leakdetector/internal/leak/heap"
	"github.com/kolkov/leakdetector/internal/leak/platform"
)

// Errno-style statuses returned by PosixMemalign.
const (
	StatusOK       = 0
	StatusNoMemory = 12 // ENOMEM
	StatusInvalid  = 22 // EINVAL
)

var log = commonlog.GetLogger("leakdetector.dispatch")

// Dispatcher routes every allocation entry point. One instance per
// process context; all methods are safe for concurrent use.
type Dispatcher struct {
	eng   engine.Engine
	boot  *bootstrap.Arena
	heap  *heap.Heap
	guard *guard.Guard
	depot *depot.Depot

	initOnce    sync.Once
	initRunning atomic.Bool

	// Die terminates the process after a fatal diagnostic. Replaced
	// by tests; never nil.
	Die func()
}

// New wires a dispatcher. All collaborators are required.
func New(eng engine.Engine, boot *bootstrap.Arena, h *heap.Heap, g *guard.Guard, d *depot.Depot) *Dispatcher {
	return &Dispatcher{
		eng:   eng,
		boot:  boot,
		heap:  h,
		guard: g,
		depot: d,
		Die:   func() { os.Exit(1) },
	}
}

// EnsureInitialized triggers the engine's one-time setup. Allocations
// made while setup runs — by the setup itself or by other threads
// racing through startup — are served by the bootstrap arena. A call
// from inside the running setup must not re-enter the once.
func (d *Dispatcher) EnsureInitialized() {
	if d.initRunning.Load() {
		return
	}
	d.initOnce.Do(func() {
		d.initRunning.Store(true)
		d.eng.Initialize()
		d.initRunning.Store(false)
	})
}

// bootstrapping reports whether requests must route to the arena: the
// engine's one-time setup has been entered but the engine does not yet
// report itself initialized. Consulting the engine's own flag closes
// the window as soon as setup completes, even before the local flag
// clears, and keeps it closed for engines that arrive pre-initialized.
func (d *Dispatcher) bootstrapping() bool {
	return d.initRunning.Load() && !d.eng.IsInitialized()
}

// context captures the calling context for a tracked event. The
// Suppressed tag tells the engine to exclude the chunk from leak
// reporting when the reentrancy guard is active.
func (d *Dispatcher) context() engine.AllocContext {
	return engine.AllocContext{
		Stack:      d.depot.Capture(2),
		Suppressed: d.guard.Active(),
	}
}

// Malloc allocates size bytes. Returns 0 on exhaustion.
func (d *Dispatcher) Malloc(size int) uintptr {
	if d.bootstrapping() {
		return d.boot.Allocate(size)
	}
	d.EnsureInitialized()
	if size < 0 || size > platform.MaxAllocSize {
		return 0
	}
	p := d.heap.Alloc(size, 0)
	if p != 0 {
		d.eng.TrackAllocate(p, size, d.context())
	}
	return p
}

// Calloc allocates n*size zero-filled bytes, rejecting multiplication
// overflow as exhaustion rather than wrapping.
func (d *Dispatcher) Calloc(n, size int) uintptr {
	if d.bootstrapping() {
		return d.boot.Callocate(n, size)
	}
	d.EnsureInitialized()
	if n < 0 || size < 0 {
		return 0
	}
	if size != 0 && n > platform.MaxAllocSize/size {
		return 0
	}
	total := n * size
	p := d.heap.Alloc(total, 0) // heap blocks are born zeroed
	if p != 0 {
		d.eng.TrackAllocate(p, total, d.context())
	}
	return p
}

// Realloc resizes ptr to size bytes preserving the leading
// min(old, new) bytes. A zero ptr allocates; a zero size releases and
// returns 0. On exhaustion the original block is left intact and 0 is
// returned.
func (d *Dispatcher) Realloc(ptr uintptr, size int) uintptr {
	if d.bootstrapping() || d.boot.Owns(ptr) {
		return d.boot.Realloc(ptr, size)
	}
	d.EnsureInitialized()
	if ptr == 0 {
		return d.Malloc(size)
	}
	if size == 0 {
		d.Free(ptr)
		return 0
	}
	if size > platform.MaxAllocSize {
		return 0
	}
	newPtr := d.heap.Realloc(ptr, size, 0)
	if newPtr != 0 {
		d.eng.TrackResize(ptr, newPtr, size, d.context())
	}
	return newPtr
}

// ReallocArray is Realloc over n*size with overflow rejection.
func (d *Dispatcher) ReallocArray(ptr uintptr, n, size int) uintptr {
	if n < 0 || size < 0 {
		return 0
	}
	if size != 0 && n > platform.MaxAllocSize/size {
		return 0
	}
	return d.Realloc(ptr, n*size)
}

// Free releases ptr. A zero ptr is a no-op. Pointers owned by neither
// the arena nor the backing heap are ignored (platform-inherited
// behavior, never a crash introduced here).
func (d *Dispatcher) Free(ptr uintptr) {
	if ptr == 0 {
		return
	}
	if d.boot.Owns(ptr) {
		d.boot.Free(ptr)
		return
	}
	if d.bootstrapping() {
		return
	}
	d.EnsureInitialized()
	if d.heap.Free(ptr) {
		d.eng.TrackRelease(ptr)
	}
}

// Cfree is the legacy alias reducing to Free.
func (d *Dispatcher) Cfree(ptr uintptr) { d.Free(ptr) }

// validAlignment reports whether align is a power of two within the
// platform limit.
func validAlignment(align uintptr) bool {
	return align > 0 && align&(align-1) == 0 && align <= platform.MaxAlignment
}

// Memalign allocates size bytes aligned to align. Violating alignments
// fail the call rather than silently rounding, on the bootstrap route
// too.
func (d *Dispatcher) Memalign(align uintptr, size int) uintptr {
	if !validAlignment(align) || size < 0 || size > platform.MaxAllocSize {
		return 0
	}
	if d.bootstrapping() {
		return d.boot.AllocateAligned(size, align)
	}
	d.EnsureInitialized()
	p := d.heap.Alloc(size, align)
	if p != 0 {
		d.eng.TrackAllocate(p, size, d.context())
	}
	return p
}

// AlignedAlloc is the C11 form: size must additionally be a multiple
// of align.
func (d *Dispatcher) AlignedAlloc(align uintptr, size int) uintptr {
	if size < 0 || uintptr(size)%max(align, 1) != 0 {
		return 0
	}
	return d.Memalign(align, size)
}

// PosixMemalign allocates size bytes aligned to align and returns
// (ptr, status). align must be a power of two and a multiple of the
// pointer size.
func (d *Dispatcher) PosixMemalign(align uintptr, size int) (uintptr, int) {
	if !validAlignment(align) || align%unsafe.Sizeof(uintptr(0)) != 0 {
		return 0, StatusInvalid
	}
	p := d.Memalign(align, size)
	if p == 0 {
		return 0, StatusNoMemory
	}
	return p, StatusOK
}

// Valloc allocates size bytes on a page boundary.
func (d *Dispatcher) Valloc(size int) uintptr {
	return d.Memalign(platform.PageSize, size)
}

// Pvalloc allocates size rounded up to whole pages, page-aligned.
// Zero size rounds to one page.
func (d *Dispatcher) Pvalloc(size int) uintptr {
	if size < 0 || size > platform.MaxAllocSize-platform.PageSize {
		return 0
	}
	rounded := (size + platform.PageSize - 1) &^ (platform.PageSize - 1)
	if rounded == 0 {
		rounded = platform.PageSize
	}
	return d.Memalign(platform.PageSize, rounded)
}

// UsableSize returns the bookkeeping size for ptr; 0 for unknown
// pointers, never a crash.
func (d *Dispatcher) UsableSize(ptr uintptr) int {
	if ptr == 0 {
		return 0
	}
	if d.boot.Owns(ptr) {
		return d.boot.Size(ptr)
	}
	if d.bootstrapping() {
		return 0
	}
	d.EnsureInitialized()
	return d.eng.UsableSize(ptr)
}

// MallInfo mirrors the zeroed legacy mallinfo result.
type MallInfo struct {
	Fields [10]int
}

// Mallinfo returns a zeroed MallInfo, matching the stubbed original.
func (d *Dispatcher) Mallinfo() MallInfo { return MallInfo{} }

// Mallopt is a stub: every tuning request is refused.
func (d *Dispatcher) Mallopt(cmd, value int) int { return 0 }

// Mcheck is a stub retained for the legacy heap-consistency API.
func (d *Dispatcher) Mcheck() int { return 0 }

// McheckPedantic is a stub like Mcheck.
func (d *Dispatcher) McheckPedantic() int { return 0 }

// Mprobe is a stub: no consistency state is kept for ptr.
func (d *Dispatcher) Mprobe(ptr uintptr) int { return 0 }

// Bytes exposes the live block at ptr, wherever it is owned, as a
// writable slice. Nil for unknown pointers.
func (d *Dispatcher) Bytes(ptr uintptr) []byte {
	if d.boot.Owns(ptr) {
		return d.boot.Bytes(ptr)
	}
	return d.heap.Bytes(ptr)
}
