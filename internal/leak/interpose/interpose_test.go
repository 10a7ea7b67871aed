package interpose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/leakdetector/internal/leak/bootstrap"
	"github.com/kolkov/leakdetector/internal/leak/depot"
	"github.com/kolkov/leakdetector/internal/leak/dispatch"
	"github.com/kolkov/leakdetector/internal/leak/engine"
	"github.com/kolkov/leakdetector/internal/leak/exitadapt"
	"github.com/kolkov/leakdetector/internal/leak/guard"
	"github.com/kolkov/leakdetector/internal/leak/heap"
	"github.com/kolkov/leakdetector/internal/leak/platform"
	"github.com/kolkov/leakdetector/internal/leak/thread"
)

func newRegistry(t *testing.T, caps platform.Capabilities) *Registry {
	t.Helper()
	dep := depot.New(8)
	tr := engine.NewTracker(dep)
	g := guard.New()
	d := dispatch.New(tr, bootstrap.New(tr, 4096), heap.New(), g, dep)
	c := thread.New(tr, g, false)
	x := exitadapt.New(tr, g, 23)
	return New(caps, d, c, x)
}

func TestFullCapabilitySurface(t *testing.T) {
	r := newRegistry(t, platform.Default())

	core := []Symbol{
		SymMalloc, SymCalloc, SymRealloc, SymReallocArray, SymFree,
		SymPosixMemalign, SymValloc, SymUsableSize,
		SymNew, SymNewArray, SymNewNothrow, SymNewArrayNothrow,
		SymNewAligned, SymNewArrayAligned, SymNewAlignedNothrow,
		SymNewArrayAlignedNothrow,
		SymDelete, SymDeleteArray, SymDeleteNothrow,
		SymDeleteArrayNothrow, SymDeleteSized, SymDeleteArraySized,
		SymDeleteAligned, SymDeleteArrayAligned, SymDeleteSizedAligned,
		SymDeleteArraySizedAligned,
		SymThreadCreate, SymThreadJoin,
		SymExit, SymAtExit, SymCxaAtExit,
	}
	optional := []Symbol{
		SymMemalign, SymAlignedAlloc, SymPvalloc, SymCfree,
		SymMallinfo, SymMallopt, SymMcheck, SymMcheckPedantic,
		SymMprobe, SymThreadExit, SymAtFork, SymStrerror,
	}
	for _, sym := range append(core, optional...) {
		assert.True(t, r.Has(sym), "symbol %q bound under full capabilities", sym)
	}
	assert.Len(t, r.Symbols(), len(core)+len(optional))
}

func TestCapabilityGating(t *testing.T) {
	r := newRegistry(t, platform.Capabilities{}) // everything optional off

	for _, sym := range []Symbol{
		SymMemalign, SymAlignedAlloc, SymPvalloc, SymCfree,
		SymMallinfo, SymMallopt, SymMcheck, SymMcheckPedantic,
		SymMprobe, SymThreadExit, SymAtFork, SymStrerror,
	} {
		assert.False(t, r.Has(sym), "optional symbol %q absent", sym)
	}
	// Core surface survives any descriptor.
	for _, sym := range []Symbol{SymMalloc, SymFree, SymThreadCreate, SymExit} {
		assert.True(t, r.Has(sym), "core symbol %q always bound", sym)
	}
}

func TestLookupHandlerIsCallable(t *testing.T) {
	r := newRegistry(t, platform.Default())

	h, ok := r.Lookup(SymMalloc)
	require.True(t, ok)
	malloc, ok := h.(func(int) uintptr)
	require.True(t, ok, "handler keeps its native signature")

	p := malloc(64)
	assert.NotZero(t, p)

	fh, ok := r.Lookup(SymFree)
	require.True(t, ok)
	fh.(func(uintptr))(p)
}

func TestLookupUnknown(t *testing.T) {
	r := newRegistry(t, platform.Default())
	_, ok := r.Lookup("dlopen")
	assert.False(t, ok)
}
