// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heap is the backing allocator the dispatcher forwards to
// once tracking is live: the stand-in for the platform heap underneath
// the interposed entry points.
//
// Blocks are ordinary byte slices pinned in a table keyed by their
// address, so a uintptr handed to a caller stays valid until the block
// is freed. Alignment requests are honored by over-allocating and
// offsetting inside the slice.
package heap

import (
	"sync"
	"unsafe"
)

type block struct {
	buf  []byte  // keeps the memory alive
	addr uintptr // aligned address handed out
	size int     // requested size
}

// Heap is a mutex-guarded block table.
type Heap struct {
	mu     sync.Mutex
	blocks map[uintptr]block
	used   int
	limit  int // 0 = unlimited; otherwise cap on total live bytes
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{blocks: make(map[uintptr]block)}
}

// SetLimit caps total live bytes. Used by tests to force exhaustion;
// 0 removes the cap.
func (h *Heap) SetLimit(n int) {
	h.mu.Lock()
	h.limit = n
	h.mu.Unlock()
}

// Alloc returns the zeroed address of a fresh block of size bytes
// aligned to align (0 or 1 for natural alignment; otherwise a power of
// two, validated by the caller). Returns 0 on exhaustion.
func (h *Heap) Alloc(size int, align uintptr) uintptr {
	if size < 0 {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.limit > 0 && h.used+size > h.limit {
		return 0
	}

	pad := int(align)
	if pad < 1 {
		pad = 1
	}
	// One extra byte so even a zero-size block gets a unique address.
	buf := make([]byte, size+pad)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	if align > 1 {
		if rem := addr & (align - 1); rem != 0 {
			addr += align - rem
		}
	}
	h.blocks[addr] = block{buf: buf, addr: addr, size: size}
	h.used += size
	return addr
}

// Free releases the block at addr. Reports whether addr was a live
// block of this heap.
func (h *Heap) Free(addr uintptr) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.blocks[addr]
	if !ok {
		return false
	}
	delete(h.blocks, addr)
	h.used -= b.size
	return true
}

// Realloc moves the block at addr to a new block of newSize bytes,
// preserving the leading min(old, new) bytes. Returns the new address,
// or 0 on exhaustion (the old block is left intact, malloc-style).
func (h *Heap) Realloc(addr uintptr, newSize int, align uintptr) uintptr {
	h.mu.Lock()
	old, ok := h.blocks[addr]
	h.mu.Unlock()
	if !ok {
		return 0
	}

	newAddr := h.Alloc(newSize, align)
	if newAddr == 0 {
		return 0
	}
	n := old.size
	if newSize < n {
		n = newSize
	}
	copy(h.Bytes(newAddr), unsafe.Slice((*byte)(unsafe.Pointer(old.addr)), n))
	h.Free(addr)
	return newAddr
}

// Owns reports whether addr is a live block of this heap.
func (h *Heap) Owns(addr uintptr) bool {
	h.mu.Lock()
	_, ok := h.blocks[addr]
	h.mu.Unlock()
	return ok
}

// Size returns the requested size of the live block at addr, 0 for
// unknown addresses.
func (h *Heap) Size(addr uintptr) int {
	h.mu.Lock()
	b, ok := h.blocks[addr]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	return b.size
}

// Bytes exposes the live block at addr as a writable slice of its
// requested size. Nil for unknown addresses.
func (h *Heap) Bytes(addr uintptr) []byte {
	h.mu.Lock()
	b, ok := h.blocks[addr]
	h.mu.Unlock()
	if !ok {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(b.addr)), b.size)
}

// Live returns the number of live blocks. Test helper.
func (h *Heap) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.blocks)
}
