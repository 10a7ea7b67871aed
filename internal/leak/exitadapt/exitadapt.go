// Copyright 2026 The leakdetector Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exitadapt intercepts process termination and the
// registration APIs that surround it.
//
// Exit-status substitution is the single place where leak presence
// changes observable process behavior: a would-be-successful exit with
// outstanding unreported leaks terminates with the configured leak
// exit code instead. Everything else here exists to keep platform
// bookkeeping out of the leak report — exit-callback and fork-handler
// registration, and the error-string lookup, all run under the
// reentrancy guard because the platform allocates behind them.
package exitadapt

import (
	"os"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/kolkov/leakdetector/internal/leak/engine"
	"github.com/kolkov/leakdetector/internal/leak/guard"
)

var log = commonlog.GetLogger("leakdetector.exit")

type exitCallback struct {
	fn  func(arg any)
	arg any
}

type forkHandlers struct {
	prepare, parent, child func()
}

// Adapter is the process-exit interposer for one process context.
type Adapter struct {
	eng      engine.Engine
	guard    *guard.Guard
	exitCode int

	mu        sync.Mutex
	callbacks []exitCallback
	atfork    []forkHandlers

	// exit forwards to the real termination primitive. Replaced by
	// tests; never returns under the default.
	exit func(status int)
}

// New wires an adapter substituting exitCode for successful exits
// with outstanding leaks.
func New(eng engine.Engine, g *guard.Guard, exitCode int) *Adapter {
	return &Adapter{
		eng:      eng,
		guard:    g,
		exitCode: exitCode,
		exit:     os.Exit,
	}
}

// SetExit replaces the real termination primitive. Test hook.
func (a *Adapter) SetExit(exit func(status int)) { a.exit = exit }

// Exit intercepts process termination. Registered exit callbacks run
// in reverse registration order, then the status — substituted when a
// successful exit would hide leaks — forwards to the real primitive.
func (a *Adapter) Exit(status int) {
	a.mu.Lock()
	callbacks := a.callbacks
	a.callbacks = nil
	a.mu.Unlock()
	for i := len(callbacks) - 1; i >= 0; i-- {
		callbacks[i].fn(callbacks[i].arg)
	}

	if status == 0 && a.eng.HasUnreportedLeaks() {
		log.Errorf("exiting with leak exit code %d: unreported leaks present", a.exitCode)
		status = a.exitCode
	}
	a.exit(status)
}

// AtExit registers a zero-argument exit callback, the legacy form.
// The registration runs under the reentrancy guard so the bookkeeping
// it allocates is excluded from leak reporting.
func (a *Adapter) AtExit(fn func()) int {
	return a.CxaAtExit(func(any) { fn() }, nil, nil)
}

// CxaAtExit registers an exit callback with argument and module
// handle, the modern form. The handle is accepted for interface
// parity and ignored.
func (a *Adapter) CxaAtExit(fn func(arg any), arg, handle any) int {
	defer a.guard.Disable()()
	a.mu.Lock()
	a.callbacks = append(a.callbacks, exitCallback{fn: fn, arg: arg})
	a.mu.Unlock()
	return 0
}

// AtFork registers fork handlers, forwarding under the reentrancy
// guard. Any handler may be nil.
func (a *Adapter) AtFork(prepare, parent, child func()) int {
	defer a.guard.Disable()()
	a.mu.Lock()
	a.atfork = append(a.atfork, forkHandlers{prepare: prepare, parent: parent, child: child})
	a.mu.Unlock()
	return 0
}

// Strerror intercepts the error-string lookup, running it under the
// guard: the platform caches the rendered string in storage that must
// not look like a leak.
func (a *Adapter) Strerror(errnum int) string {
	defer a.guard.Disable()()
	return errnoString(errnum)
}

// RegisteredAtExit returns the number of pending exit callbacks.
// Test helper.
func (a *Adapter) RegisteredAtExit() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.callbacks)
}

// RegisteredAtFork returns the number of fork-handler triples. Test
// helper.
func (a *Adapter) RegisteredAtFork() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.atfork)
}
