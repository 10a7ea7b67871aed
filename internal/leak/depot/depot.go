// Package depot stores deduplicated allocation contexts.
//
// Every successful allocate/resize captures the caller's return-address
// chain; identical chains are stored once and referenced by a 64-bit
// FNV-1a hash. The tracking engine keeps only the hash per chunk, so
// the cost per allocation is one map entry per *unique* call site, not
// per call.
//
// Thread safety: sync.Map, lock-free reads on the hot path.
package depot

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"unsafe"
)

// MaxFrames is the hard upper bound on captured frames. The effective
// depth is configurable below it (options.MaxStackDepth).
const MaxFrames = 16

// Trace is a fixed-size captured return-address chain. Unused tail
// entries are zero.
type Trace struct {
	PC [MaxFrames]uintptr
}

// Format renders the trace one frame per line, resolving symbols
// lazily. Used by the reference tracker's leak report.
func (t *Trace) Format() string {
	var b strings.Builder
	frames := runtime.CallersFrames(t.pcs())
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}
		fmt.Fprintf(&b, "    #%s %s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

func (t *Trace) pcs() []uintptr {
	n := 0
	for n < MaxFrames && t.PC[n] != 0 {
		n++
	}
	return t.PC[:n]
}

// Depot deduplicates traces by hash.
type Depot struct {
	depth  int
	traces sync.Map // uint64 → *Trace
}

// New returns a depot capturing at most depth frames per trace.
// Depths outside [1, MaxFrames] are clamped.
func New(depth int) *Depot {
	if depth < 1 {
		depth = 1
	}
	if depth > MaxFrames {
		depth = MaxFrames
	}
	return &Depot{depth: depth}
}

// Capture records the current call chain, skipping skip frames above
// the caller of Capture, and returns its hash. Returns 0 when no
// frames are available (never a valid hash for a stored trace).
func (d *Depot) Capture(skip int) uint64 {
	var pcs [MaxFrames]uintptr
	// +2 skips runtime.Callers and Capture itself.
	n := runtime.Callers(skip+2, pcs[:d.depth])
	if n == 0 {
		return 0
	}

	h := fnv.New64a()
	h.Write(unsafe.Slice((*byte)(unsafe.Pointer(&pcs[0])), n*int(unsafe.Sizeof(uintptr(0)))))
	hash := h.Sum64()
	if hash == 0 {
		hash = 1
	}

	if _, loaded := d.traces.Load(hash); !loaded {
		t := &Trace{}
		copy(t.PC[:], pcs[:n])
		d.traces.Store(hash, t)
	}
	return hash
}

// Get returns the trace stored under hash, or nil.
func (d *Depot) Get(hash uint64) *Trace {
	v, ok := d.traces.Load(hash)
	if !ok {
		return nil
	}
	return v.(*Trace)
}

// Reset drops all stored traces. Test helper.
func (d *Depot) Reset() {
	d.traces.Range(func(k, _ any) bool {
		d.traces.Delete(k)
		return true
	})
}
