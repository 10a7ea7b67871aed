// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/kolkov/leakdetector/internal/leak/depot"
)

// chunk is the tracked metadata for one live allocation.
type chunk struct {
	size       int
	stack      uint64
	suppressed bool
	tid        int32
}

// threadState is the lifecycle of one tracked thread identity.
type threadState int

const (
	threadCreated threadState = iota
	threadRunning
	threadFinished
)

type threadInfo struct {
	state    threadState
	creator  int32
	detached bool
	osID     int
}

// Tracker is the reference Engine: an in-memory chunk registry with
// root regions and a thread table. See the package comment for its
// leak rule.
type Tracker struct {
	initialized atomic.Bool

	mu      sync.Mutex
	chunks  map[uintptr]chunk
	roots   map[uintptr]int
	threads map[int32]threadInfo
	byGID   map[int64]int32 // goroutine id → running tid
	nextTID int32

	// depot is optional; when set, Report resolves stacks through it.
	depot *depot.Depot
}

var _ Engine = (*Tracker)(nil)

// NewTracker returns an empty tracker. d may be nil when callers never
// format reports.
func NewTracker(d *depot.Depot) *Tracker {
	return &Tracker{
		chunks:  make(map[uintptr]chunk),
		roots:   make(map[uintptr]int),
		threads: make(map[int32]threadInfo),
		byGID:   make(map[int64]int32),
		depot:   d,
	}
}

// IsInitialized implements Engine.
func (t *Tracker) IsInitialized() bool {
	return t.initialized.Load()
}

// Initialize implements Engine. Idempotent.
func (t *Tracker) Initialize() {
	t.initialized.Store(true)
}

// TrackAllocate implements Engine.
func (t *Tracker) TrackAllocate(ptr uintptr, size int, ctx AllocContext) {
	if ptr == 0 {
		return
	}
	tid := t.currentTID()
	t.mu.Lock()
	t.chunks[ptr] = chunk{size: size, stack: ctx.Stack, suppressed: ctx.Suppressed, tid: tid}
	t.mu.Unlock()
}

// TrackResize implements Engine.
func (t *Tracker) TrackResize(oldPtr, newPtr uintptr, newSize int, ctx AllocContext) {
	tid := t.currentTID()
	t.mu.Lock()
	delete(t.chunks, oldPtr)
	if newPtr != 0 {
		t.chunks[newPtr] = chunk{size: newSize, stack: ctx.Stack, suppressed: ctx.Suppressed, tid: tid}
	}
	t.mu.Unlock()
}

// TrackRelease implements Engine.
func (t *Tracker) TrackRelease(ptr uintptr) {
	t.mu.Lock()
	delete(t.chunks, ptr)
	t.mu.Unlock()
}

// UsableSize implements Engine.
func (t *Tracker) UsableSize(ptr uintptr) int {
	t.mu.Lock()
	c, ok := t.chunks[ptr]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	return c.size
}

// RegisterRootRegion implements Engine.
func (t *Tracker) RegisterRootRegion(addr uintptr, size int) {
	t.mu.Lock()
	t.roots[addr] = size
	t.mu.Unlock()
}

// UnregisterRootRegion implements Engine. Unknown regions are ignored;
// the bootstrap allocator unregisters exactly what it registered.
func (t *Tracker) UnregisterRootRegion(addr uintptr, size int) {
	t.mu.Lock()
	if t.roots[addr] == size {
		delete(t.roots, addr)
	}
	t.mu.Unlock()
}

// ThreadCreate implements Engine. Identities are strictly increasing
// and never MainThreadID.
func (t *Tracker) ThreadCreate(creator int32, detached bool) int32 {
	t.mu.Lock()
	t.nextTID++
	tid := t.nextTID
	t.threads[tid] = threadInfo{state: threadCreated, creator: creator, detached: detached}
	t.mu.Unlock()
	return tid
}

// ThreadStart implements Engine. Binds tid to the calling goroutine so
// a later no-argument ThreadFinish resolves.
func (t *Tracker) ThreadStart(tid int32, osID int) {
	gid := goid.Get()
	t.mu.Lock()
	info := t.threads[tid]
	info.state = threadRunning
	info.osID = osID
	t.threads[tid] = info
	t.byGID[gid] = tid
	t.mu.Unlock()
}

// ThreadFinish implements Engine.
func (t *Tracker) ThreadFinish() {
	gid := goid.Get()
	t.mu.Lock()
	if tid, ok := t.byGID[gid]; ok {
		info := t.threads[tid]
		info.state = threadFinished
		t.threads[tid] = info
		delete(t.byGID, gid)
	}
	t.mu.Unlock()
}

// CurrentThreadID returns the tracked identity of the calling thread,
// MainThreadID when the caller was not started through the
// coordinator.
func (t *Tracker) CurrentThreadID() int32 {
	return t.currentTID()
}

func (t *Tracker) currentTID() int32 {
	gid := goid.Get()
	t.mu.Lock()
	tid := t.byGID[gid]
	t.mu.Unlock()
	return tid
}

// ThreadState returns (running, finished) counts. Test helper.
func (t *Tracker) ThreadState() (running, finished int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, info := range t.threads {
		switch info.state {
		case threadRunning:
			running++
		case threadFinished:
			finished++
		}
	}
	return
}

// leaks returns the addresses of live unsuppressed chunks outside all
// root regions, sorted for stable reports.
func (t *Tracker) leaks() []uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []uintptr
	for addr, c := range t.chunks {
		if c.suppressed {
			continue
		}
		if t.insideRootLocked(addr) {
			continue
		}
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Tracker) insideRootLocked(addr uintptr) bool {
	for base, size := range t.roots {
		if addr >= base && addr < base+uintptr(size) {
			return true
		}
	}
	return false
}

// HasUnreportedLeaks implements Engine.
func (t *Tracker) HasUnreportedLeaks() bool {
	return len(t.leaks()) > 0
}

// Report writes a human-readable leak summary to w and returns the
// number of leaked chunks. Stacks resolve through the depot when one
// was supplied.
func (t *Tracker) Report(w io.Writer) int {
	addrs := t.leaks()
	if len(addrs) == 0 {
		return 0
	}
	total := 0
	for _, addr := range addrs {
		t.mu.Lock()
		c := t.chunks[addr]
		t.mu.Unlock()
		total += c.size
		fmt.Fprintf(w, "Direct leak of %d byte(s) at 0x%x (thread %d)\n", c.size, addr, c.tid)
		if t.depot != nil {
			if trace := t.depot.Get(c.stack); trace != nil {
				fmt.Fprint(w, trace.Format())
			}
		}
	}
	fmt.Fprintf(w, "SUMMARY: %d byte(s) leaked in %d allocation(s).\n", total, len(addrs))
	return len(addrs)
}

// LiveChunks returns the number of tracked chunks. Test helper.
func (t *Tracker) LiveChunks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chunks)
}

// RootRegions returns the number of registered root regions. Test
// helper.
func (t *Tracker) RootRegions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.roots)
}

// Reset drops all state including the initialized flag. Test helper.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.chunks = make(map[uintptr]chunk)
	t.roots = make(map[uintptr]int)
	t.threads = make(map[int32]threadInfo)
	t.byGID = make(map[int64]int32)
	t.nextTID = 0
	t.mu.Unlock()
	t.initialized.Store(false)
}
