// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package interpose holds the interception registry: the process-wide,
// write-once table mapping each intercepted entry-point symbol to this
// layer's handler.
//
// The original builds this table with one compile-time macro per
// symbol, duplicated across platform variants. Here it is built once
// at startup from the capability descriptor: core handlers are bound
// unconditionally, optional ones only when the platform carries the
// symbol. After New returns the table is never written again, so
// lookups take no lock.
package interpose

import (
	"sort"

	"github.com/kolkov/leakdetector/internal/leak/dispatch"
	"github.com/kolkov/leakdetector/internal/leak/exitadapt"
	"github.com/kolkov/leakdetector/internal/leak/platform"
	"github.com/kolkov/leakdetector/internal/leak/thread"
)

// Symbol names an intercepted entry point.
type Symbol string

// The intercepted surface. Optional symbols are present in a registry
// only when the capability descriptor carries them.
const (
	SymMalloc         Symbol = "malloc"
	SymCalloc         Symbol = "calloc"
	SymRealloc        Symbol = "realloc"
	SymReallocArray   Symbol = "reallocarray"
	SymFree           Symbol = "free"
	SymCfree          Symbol = "cfree"
	SymMemalign       Symbol = "memalign"
	SymAlignedAlloc   Symbol = "aligned_alloc"
	SymPosixMemalign  Symbol = "posix_memalign"
	SymValloc         Symbol = "valloc"
	SymPvalloc        Symbol = "pvalloc"
	SymUsableSize     Symbol = "malloc_usable_size"
	SymMallinfo       Symbol = "mallinfo"
	SymMallopt        Symbol = "mallopt"
	SymMcheck         Symbol = "mcheck"
	SymMcheckPedantic Symbol = "mcheck_pedantic"
	SymMprobe         Symbol = "mprobe"

	SymNew                    Symbol = "operator new"
	SymNewArray               Symbol = "operator new[]"
	SymNewNothrow             Symbol = "operator new(nothrow)"
	SymNewArrayNothrow        Symbol = "operator new[](nothrow)"
	SymNewAligned             Symbol = "operator new(align)"
	SymNewArrayAligned        Symbol = "operator new[](align)"
	SymNewAlignedNothrow      Symbol = "operator new(align,nothrow)"
	SymNewArrayAlignedNothrow Symbol = "operator new[](align,nothrow)"

	SymDelete                  Symbol = "operator delete"
	SymDeleteArray             Symbol = "operator delete[]"
	SymDeleteNothrow           Symbol = "operator delete(nothrow)"
	SymDeleteArrayNothrow      Symbol = "operator delete[](nothrow)"
	SymDeleteSized             Symbol = "operator delete(size)"
	SymDeleteArraySized        Symbol = "operator delete[](size)"
	SymDeleteAligned           Symbol = "operator delete(align)"
	SymDeleteArrayAligned      Symbol = "operator delete[](align)"
	SymDeleteSizedAligned      Symbol = "operator delete(size,align)"
	SymDeleteArraySizedAligned Symbol = "operator delete[](size,align)"

	SymThreadCreate Symbol = "pthread_create"
	SymThreadJoin   Symbol = "pthread_join"
	SymThreadExit   Symbol = "thread_exit"

	SymExit      Symbol = "_exit"
	SymAtExit    Symbol = "atexit"
	SymCxaAtExit Symbol = "__cxa_atexit"
	SymAtFork    Symbol = "pthread_atfork"
	SymStrerror  Symbol = "strerror"
)

// Registry is the immutable symbol→handler table. Handlers keep their
// native signatures; callers that need one assert the type they bound.
type Registry struct {
	table map[Symbol]any
}

// New builds the registry for the given capability descriptor. Called
// exactly once per process context, before any traced code runs.
func New(caps platform.Capabilities, d *dispatch.Dispatcher, c *thread.Coordinator, x *exitadapt.Adapter) *Registry {
	t := map[Symbol]any{
		SymMalloc:        d.Malloc,
		SymCalloc:        d.Calloc,
		SymRealloc:       d.Realloc,
		SymReallocArray:  d.ReallocArray,
		SymFree:          d.Free,
		SymPosixMemalign: d.PosixMemalign,
		SymValloc:        d.Valloc,
		SymUsableSize:    d.UsableSize,

		SymNew:                    d.New,
		SymNewArray:               d.NewArray,
		SymNewNothrow:             d.NewNothrow,
		SymNewArrayNothrow:        d.NewArrayNothrow,
		SymNewAligned:             d.NewAligned,
		SymNewArrayAligned:        d.NewArrayAligned,
		SymNewAlignedNothrow:      d.NewAlignedNothrow,
		SymNewArrayAlignedNothrow: d.NewArrayAlignedNothrow,

		SymDelete:                  d.Delete,
		SymDeleteArray:             d.DeleteArray,
		SymDeleteNothrow:           d.DeleteNothrow,
		SymDeleteArrayNothrow:      d.DeleteArrayNothrow,
		SymDeleteSized:             d.DeleteSized,
		SymDeleteArraySized:        d.DeleteArraySized,
		SymDeleteAligned:           d.DeleteAligned,
		SymDeleteArrayAligned:      d.DeleteArrayAligned,
		SymDeleteSizedAligned:      d.DeleteSizedAligned,
		SymDeleteArraySizedAligned: d.DeleteArraySizedAligned,

		SymThreadCreate: c.Create,
		SymThreadJoin:   c.Join,

		SymExit:      x.Exit,
		SymAtExit:    x.AtExit,
		SymCxaAtExit: x.CxaAtExit,
	}

	if caps.AlignedAlloc {
		t[SymMemalign] = d.Memalign
		t[SymAlignedAlloc] = d.AlignedAlloc
	}
	if caps.Pvalloc {
		t[SymPvalloc] = d.Pvalloc
	}
	if caps.Cfree {
		t[SymCfree] = d.Cfree
	}
	if caps.MallinfoStub {
		t[SymMallinfo] = d.Mallinfo
		t[SymMallopt] = d.Mallopt
		t[SymMcheck] = d.Mcheck
		t[SymMcheckPedantic] = d.McheckPedantic
		t[SymMprobe] = d.Mprobe
	}
	if caps.ThreadExit {
		t[SymThreadExit] = c.Exit
	}
	if caps.AtFork {
		t[SymAtFork] = x.AtFork
	}
	if caps.Strerror {
		t[SymStrerror] = x.Strerror
	}

	return &Registry{table: t}
}

// Lookup returns the handler bound to sym.
func (r *Registry) Lookup(sym Symbol) (any, bool) {
	h, ok := r.table[sym]
	return h, ok
}

// Has reports whether sym is bound.
func (r *Registry) Has(sym Symbol) bool {
	_, ok := r.table[sym]
	return ok
}

// Symbols returns the bound symbols, sorted.
func (r *Registry) Symbols() []Symbol {
	out := make([]Symbol, 0, len(r.table))
	for s := range r.table {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
