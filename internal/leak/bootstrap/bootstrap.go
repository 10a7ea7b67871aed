// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bootstrap implements the pre-initialization allocator.
//
// Before the tracking engine has completed its one-time setup, the
// dispatcher cannot forward allocations to it — the setup itself may
// allocate. Those early allocations land here instead: a fixed arena
// with a bump cursor and a small reuse queue for freed blocks.
//
// Every block handed out is registered with the engine as a root
// region, making it permanently reachable to the leak analysis; the
// registration is dropped when the block is released. That keeps
// bootstrap memory out of both the leak report and the tracked heap.
//
// The arena is entered concurrently by threads racing through early
// startup, so all state is behind one mutex.
package bootstrap

import (
	"sync"
	"unsafe"

	"github.com/eapache/queue"

	"github.com/kolkov/leakdetector/internal/leak/engine"
)

// blockAlign is the granularity of arena blocks.
const blockAlign = 16

type freeBlock struct {
	addr uintptr
	size int
}

// Arena is the bootstrap allocator.
type Arena struct {
	eng engine.Engine

	mu     sync.Mutex
	buf    []byte
	next   int             // bump cursor into buf
	sizes  map[uintptr]int // live block → requested size
	freed  *queue.Queue    // freeBlock, FIFO reuse
	issued int             // total blocks ever issued
}

// New returns an arena of the given byte size, registering and
// unregistering root regions through eng.
func New(eng engine.Engine, size int) *Arena {
	if size < blockAlign {
		size = blockAlign
	}
	return &Arena{
		eng:   eng,
		buf:   make([]byte, size),
		sizes: make(map[uintptr]int),
		freed: queue.New(),
	}
}

func roundUp(n int) int {
	return (n + blockAlign - 1) &^ (blockAlign - 1)
}

// Allocate returns a zeroed block of size bytes, or 0 when the arena
// is exhausted. The block's extent is registered as a root region.
func (a *Arena) Allocate(size int) uintptr {
	return a.AllocateAligned(size, blockAlign)
}

// AllocateAligned is Allocate with the block's address aligned to
// align, a power of two validated by the caller.
func (a *Arena) AllocateAligned(size int, align uintptr) uintptr {
	if size < 0 {
		return 0
	}
	if align < blockAlign {
		align = blockAlign
	}
	a.mu.Lock()
	addr := a.takeLocked(size, align)
	a.mu.Unlock()
	if addr == 0 {
		return 0
	}
	a.eng.RegisterRootRegion(addr, size)
	return addr
}

func (a *Arena) takeLocked(size int, align uintptr) uintptr {
	need := roundUp(size)
	if need == 0 {
		need = blockAlign
	}

	// First fit from the freed queue; rotate non-fitting or misaligned
	// blocks to the back so they stay reusable.
	for i := a.freed.Length(); i > 0; i-- {
		fb := a.freed.Remove().(freeBlock)
		if fb.size >= need && fb.addr&(align-1) == 0 {
			clear(a.bytesLocked(fb.addr, size))
			a.sizes[fb.addr] = size
			a.issued++
			return fb.addr
		}
		a.freed.Add(fb)
	}

	// Pad the bump cursor up to the requested alignment.
	base := uintptr(unsafe.Pointer(&a.buf[0]))
	cur := base + uintptr(a.next)
	pad := 0
	if rem := cur & (align - 1); rem != 0 {
		pad = int(align - rem)
	}
	if a.next+pad+need > len(a.buf) {
		return 0
	}
	a.next += pad
	addr := base + uintptr(a.next)
	a.next += need
	a.sizes[addr] = size
	a.issued++
	return addr
}

// Callocate returns a zeroed block of n*size bytes, failing on
// multiplication overflow.
func (a *Arena) Callocate(n, size int) uintptr {
	if n < 0 || size < 0 {
		return 0
	}
	if size != 0 && n > int(^uint(0)>>1)/size {
		return 0
	}
	return a.Allocate(n * size)
}

// Realloc moves a bootstrap block to newSize bytes, preserving the
// leading min(old, new) bytes and keeping the root-region registration
// in step. A zero newSize frees the block and returns 0.
func (a *Arena) Realloc(addr uintptr, newSize int) uintptr {
	if addr == 0 {
		return a.Allocate(newSize)
	}
	if newSize == 0 {
		a.Free(addr)
		return 0
	}

	a.mu.Lock()
	oldSize, ok := a.sizes[addr]
	a.mu.Unlock()
	if !ok {
		return 0
	}

	newAddr := a.Allocate(newSize)
	if newAddr == 0 {
		return 0
	}
	n := oldSize
	if newSize < n {
		n = newSize
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(newAddr)), n),
		unsafe.Slice((*byte)(unsafe.Pointer(addr)), n))
	a.Free(addr)
	return newAddr
}

// Free releases a bootstrap block and unregisters its root region.
// Reports whether addr was live in this arena.
func (a *Arena) Free(addr uintptr) bool {
	a.mu.Lock()
	size, ok := a.sizes[addr]
	if ok {
		delete(a.sizes, addr)
		a.freed.Add(freeBlock{addr: addr, size: roundUp(size)})
	}
	a.mu.Unlock()
	if !ok {
		return false
	}
	a.eng.UnregisterRootRegion(addr, size)
	return true
}

// Owns reports whether addr is a live block of this arena.
func (a *Arena) Owns(addr uintptr) bool {
	a.mu.Lock()
	_, ok := a.sizes[addr]
	a.mu.Unlock()
	return ok
}

// Size returns the requested size of a live block, 0 otherwise.
func (a *Arena) Size(addr uintptr) int {
	a.mu.Lock()
	size := a.sizes[addr]
	a.mu.Unlock()
	return size
}

// Bytes exposes a live block as a writable slice. Nil for unknown
// addresses.
func (a *Arena) Bytes(addr uintptr) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	size, ok := a.sizes[addr]
	if !ok {
		return nil
	}
	return a.bytesLocked(addr, size)
}

func (a *Arena) bytesLocked(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// Live returns the number of outstanding blocks. Test helper.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sizes)
}
