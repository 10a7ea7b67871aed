package platform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsRepresentable(t *testing.T) {
	// The request ceiling must survive int arithmetic on the native
	// word size; overflow checks divide by it.
	assert.Greater(t, MaxAllocSize, 0)
	assert.LessOrEqual(t, MaxAllocSize, math.MaxInt)
	assert.Zero(t, MaxAllocSize&(MaxAllocSize-1), "power of two")
	assert.Greater(t, MaxAllocSize, MaxAlignment)
	assert.Zero(t, MaxAlignment&(MaxAlignment-1))
	assert.Zero(t, PageSize&(PageSize-1))
}

func TestDefaultCarriesEverything(t *testing.T) {
	assert.Equal(t, Capabilities{
		AlignedAlloc: true,
		Pvalloc:      true,
		Cfree:        true,
		MallinfoStub: true,
		ThreadExit:   true,
		AtFork:       true,
		Strerror:     true,
	}, Default())
}
