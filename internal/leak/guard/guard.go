// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guard implements the reentrancy disabler: a scoped,
// per-goroutine "do not track" marker consumed by the allocation
// dispatcher when it tags captured allocation contexts.
//
// The dispatcher still performs the allocation while the guard is
// active; suppression happens on the tracking-engine side, driven by
// the tag. The guard only answers "is this goroutine inside a disabled
// region right now".
//
// Nesting is counted: entering a disabled region twice requires leaving
// it twice before tracking resumes. Restoration is tied to the returned
// func, so every exit path of the caller (early return, panic unwind
// via defer) restores correctly.
package guard

import (
	"sync"

	"github.com/petermattis/goid"
)

// Guard tracks disable depth per goroutine.
//
// The zero value is not usable; construct with New. State is keyed by
// goroutine id, the closest Go equivalent of the original's
// thread-local flag.
type Guard struct {
	mu    sync.Mutex
	depth map[int64]int
}

// New returns an empty guard.
func New() *Guard {
	return &Guard{depth: make(map[int64]int)}
}

// Disable marks the calling goroutine's dynamic extent as untracked and
// returns the restore func. Callers must defer it:
//
//	defer g.Disable()()
//
// Disable while already disabled nests; the region stays disabled until
// the outermost restore runs.
func (g *Guard) Disable() func() {
	gid := goid.Get()
	g.mu.Lock()
	g.depth[gid]++
	g.mu.Unlock()

	restored := false
	return func() {
		// A restore func invoked twice must not unbalance another
		// scope's count.
		if restored {
			return
		}
		restored = true
		g.mu.Lock()
		if n := g.depth[gid]; n > 1 {
			g.depth[gid] = n - 1
		} else {
			delete(g.depth, gid)
		}
		g.mu.Unlock()
	}
}

// Active reports whether the calling goroutine is inside a disabled
// region.
func (g *Guard) Active() bool {
	gid := goid.Get()
	g.mu.Lock()
	n := g.depth[gid]
	g.mu.Unlock()
	return n > 0
}
