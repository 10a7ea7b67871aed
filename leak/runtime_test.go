// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package leak

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/leakdetector/internal/leak/options"
	"github.com/kolkov/leakdetector/internal/leak/platform"
)

func freshRuntime(t *testing.T) *Runtime {
	t.Helper()
	resetForTest()
	t.Setenv(options.EnvOptions, "")
	t.Setenv(options.EnvConfig, "")
	t.Cleanup(resetForTest)
	return Init()
}

func TestInitIsIdempotent(t *testing.T) {
	r := freshRuntime(t)
	assert.Same(t, r, Init())
	assert.Same(t, r, Default())
}

func TestInitBuildsReferenceTracker(t *testing.T) {
	r := freshRuntime(t)
	require.NotNil(t, r.Tracker)
	assert.Same(t, r.Tracker, r.Engine)
	assert.True(t, r.Engine.IsInitialized())
}

func TestInitReadsOptionString(t *testing.T) {
	resetForTest()
	t.Setenv(options.EnvOptions, "exitcode=5,max_stack_depth=4")
	t.Setenv(options.EnvConfig, "")
	t.Cleanup(resetForTest)

	r := Init()
	assert.Equal(t, 5, r.Options.ExitCode)
	assert.Equal(t, 4, r.Options.MaxStackDepth)
}

func TestAllocationRoundTrip(t *testing.T) {
	r := freshRuntime(t)

	p := Malloc(128)
	require.NotZero(t, p)
	assert.Equal(t, 128, UsableSize(p))
	assert.Len(t, Bytes(p), 128)

	p = Realloc(p, 256)
	require.NotZero(t, p)
	assert.Equal(t, 256, UsableSize(p))

	before := r.Tracker.LiveChunks()
	Free(p)
	assert.Equal(t, before-1, r.Tracker.LiveChunks())
}

func TestCallocZeroFilled(t *testing.T) {
	freshRuntime(t)

	p := Calloc(8, 16)
	require.NotZero(t, p)
	defer Free(p)
	assert.Equal(t, make([]byte, 128), Bytes(p))
}

func TestMemalignAlignment(t *testing.T) {
	freshRuntime(t)

	p := Memalign(256, 64)
	require.NotZero(t, p)
	defer Free(p)
	assert.Zero(t, p%256)
}

func TestDisableTrackingSuppressesChunk(t *testing.T) {
	r := freshRuntime(t)

	var p uintptr
	func() {
		defer DisableTracking()()
		p = Malloc(32)
	}()
	require.NotZero(t, p)

	var buf bytes.Buffer
	assert.Zero(t, r.Tracker.Report(&buf), "suppressed chunk never reported")
	Free(p)
}

func TestThreadLifecycle(t *testing.T) {
	freshRuntime(t)

	th, err := Create(nil, func(arg any) any { return arg.(int) * 2 }, 21)
	require.NoError(t, err)
	res, err := Join(th)
	require.NoError(t, err)
	assert.Equal(t, 42, res)
}

func TestExitSubstitutesLeakCode(t *testing.T) {
	r := freshRuntime(t)

	var status int
	r.ExitAdapt.SetExit(func(s int) { status = s })

	Malloc(64) // leaked on purpose
	r.ExitAdapt.Exit(0)
	assert.Equal(t, r.Options.ExitCode, status)
}

func TestCheckLeaksCountsUnfreed(t *testing.T) {
	freshRuntime(t)

	p := Malloc(48)
	require.NotZero(t, p)
	assert.GreaterOrEqual(t, CheckLeaks(), 1)
	Free(p)
}

func TestGetInfo(t *testing.T) {
	freshRuntime(t)

	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.Engine)
}

func TestNewRuntimeCustomCapabilities(t *testing.T) {
	r := NewRuntime(nil, options.Default(), platform.Capabilities{})
	assert.False(t, r.Registry.Has("pvalloc"))
	assert.True(t, r.Registry.Has("malloc"))
}
