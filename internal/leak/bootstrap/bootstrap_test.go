package bootstrap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/leakdetector/internal/leak/engine"
)

func newArena(t *testing.T, size int) (*Arena, *engine.Tracker) {
	t.Helper()
	tr := engine.NewTracker(nil)
	return New(tr, size), tr
}

func TestAllocateRegistersRootRegion(t *testing.T) {
	a, tr := newArena(t, 4096)

	p := a.Allocate(100)
	require.NotZero(t, p)
	assert.True(t, a.Owns(p))
	assert.Equal(t, 1, tr.RootRegions(), "extent registered on allocation")

	assert.True(t, a.Free(p))
	assert.Zero(t, tr.RootRegions(), "unregistered exactly once on release")
	assert.False(t, a.Free(p), "second release is not an unregister")
}

func TestAllocateZeroed(t *testing.T) {
	a, _ := newArena(t, 4096)
	p := a.Allocate(64)
	require.NotZero(t, p)
	for _, b := range a.Bytes(p) {
		require.Zero(t, b)
	}
}

func TestCallocateOverflow(t *testing.T) {
	a, _ := newArena(t, 4096)
	huge := int(^uint(0) >> 1)
	assert.Zero(t, a.Callocate(huge, 16), "count*size overflow fails, never wraps")
	assert.NotZero(t, a.Callocate(4, 16))
}

func TestReallocPreservesPrefixAndRootRegions(t *testing.T) {
	a, tr := newArena(t, 4096)

	p := a.Allocate(16)
	require.NotZero(t, p)
	copy(a.Bytes(p), "12345678")

	q := a.Realloc(p, 32)
	require.NotZero(t, q)
	assert.False(t, a.Owns(p))
	assert.Equal(t, "12345678", string(a.Bytes(q)[:8]))
	assert.Equal(t, 1, tr.RootRegions(), "old extent out, new extent in")
}

func TestReallocEdgeForms(t *testing.T) {
	a, _ := newArena(t, 4096)

	p := a.Realloc(0, 32)
	require.NotZero(t, p, "null pointer behaves as allocate")

	assert.Zero(t, a.Realloc(p, 0), "zero size behaves as release")
	assert.False(t, a.Owns(p))
}

func TestFreedBlockReuse(t *testing.T) {
	a, _ := newArena(t, 4096)

	p := a.Allocate(64)
	copy(a.Bytes(p), "dirty")
	require.True(t, a.Free(p))

	q := a.Allocate(64)
	assert.Equal(t, p, q, "freed block of fitting size is reused")
	for _, b := range a.Bytes(q) {
		require.Zero(t, b, "reused blocks are zeroed again")
	}
}

func TestAllocateAligned(t *testing.T) {
	a, tr := newArena(t, 64<<10)

	a.Allocate(24) // leave the bump cursor somewhere unaligned

	p := a.AllocateAligned(64, 4096)
	require.NotZero(t, p)
	assert.Zero(t, p&4095, "block address honors the requested alignment")
	assert.Equal(t, 64, a.Size(p))
	assert.Equal(t, 2, tr.RootRegions())
}

func TestAllocateAlignedReuseKeepsAlignment(t *testing.T) {
	a, _ := newArena(t, 64<<10)

	p := a.AllocateAligned(64, 1024)
	require.NotZero(t, p)
	require.True(t, a.Free(p))

	// A freed block only satisfies requests it is aligned for.
	q := a.AllocateAligned(64, 4096)
	require.NotZero(t, q)
	assert.Zero(t, q&4095)
	if p&4095 != 0 {
		assert.NotEqual(t, p, q, "misaligned freed block is not handed out")
	}
}

func TestExhaustion(t *testing.T) {
	a, _ := newArena(t, 128)
	require.NotZero(t, a.Allocate(100))
	assert.Zero(t, a.Allocate(100), "bump cursor exhausted")
}

func TestConcurrentAllocate(t *testing.T) {
	a, _ := newArena(t, 1<<20)

	var wg sync.WaitGroup
	seen := make([]uintptr, 64)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = a.Allocate(32)
		}(i)
	}
	wg.Wait()

	unique := make(map[uintptr]bool)
	for _, p := range seen {
		require.NotZero(t, p)
		require.False(t, unique[p], "blocks never overlap")
		unique[p] = true
	}
}
